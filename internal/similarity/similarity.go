// Package similarity scores the semantic closeness of two texts with a
// pretrained BERT encoder. Each text is encoded separately, the encoder's
// last hidden state is mean-pooled into one vector, and the two vectors are
// compared by cosine similarity.
//
// A Model is loaded once at startup and is immutable afterwards, so a single
// instance may be shared by every request in the process.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Special tokens of the encoder vocabulary.
const (
	TokenUnknown = "[UNK]"
	TokenStart   = "[CLS]"
	TokenEnd     = "[SEP]"
)

// DefaultMaxSeqLen is the encoder's input limit, boundary tokens included.
const DefaultMaxSeqLen = 512

// Scorer returns a similarity score in [-1, 1] for two texts.
type Scorer interface {
	Score(a, b string) (float64, error)
}

// Encoder turns a text into a single pooled embedding. The text handed to
// Encode always fits the encoder's sequence limit.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// Options tunes how a Model prepares text for the encoder.
type Options struct {
	// MaxSeqLen is the number of word pieces kept per text, including the
	// two boundary tokens. Zero means DefaultMaxSeqLen.
	MaxSeqLen int
	// Download fetches a missing model from the Hugging Face hub on Load.
	// The last path element must then be the hub model ID.
	Download bool
}

// Model pairs an encoder with the vocabulary used to truncate its input.
type Model struct {
	encoder   Encoder
	vocab     map[string]struct{}
	maxSeqLen int
}

// Compile-time check that Model implements Scorer.
var _ Scorer = (*Model)(nil)

// New returns a Model that scores with enc. vocab is read as a BERT
// vocab.txt: one word piece per line.
func New(enc Encoder, vocab io.Reader, opts Options) (*Model, error) {
	if opts.MaxSeqLen == 0 {
		opts.MaxSeqLen = DefaultMaxSeqLen
	}
	if opts.MaxSeqLen < 3 {
		return nil, fmt.Errorf("max sequence length %d leaves no room for content", opts.MaxSeqLen)
	}
	v, err := readVocab(vocab)
	if err != nil {
		return nil, err
	}
	return &Model{encoder: enc, vocab: v, maxSeqLen: opts.MaxSeqLen}, nil
}

// VocabSize returns the number of word pieces in the vocabulary.
func (m *Model) VocabSize() int { return len(m.vocab) }

// MaxSeqLen returns the per-text word-piece limit.
func (m *Model) MaxSeqLen() int { return m.maxSeqLen }

// Score encodes both texts and returns the cosine similarity of their
// mean-pooled embeddings.
func (m *Model) Score(a, b string) (float64, error) {
	if m == nil || m.encoder == nil {
		return 0, errors.New("similarity model not loaded")
	}
	ctx := context.Background()
	ea, err := m.encoder.Encode(ctx, m.Truncate(a))
	if err != nil {
		return 0, fmt.Errorf("encoding text: %w", err)
	}
	eb, err := m.encoder.Encode(ctx, m.Truncate(b))
	if err != nil {
		return 0, fmt.Errorf("encoding text: %w", err)
	}
	if len(ea) != len(eb) {
		return 0, fmt.Errorf("embedding dimensions differ: %d and %d", len(ea), len(eb))
	}
	return cosine(ea, eb), nil
}

// Truncate returns text cut to the words whose word pieces fit in
// MaxSeqLen-2. Text that already fits is returned unchanged.
func (m *Model) Truncate(text string) string {
	budget := m.maxSeqLen - 2
	ws := words(normalize(text))
	used := 0
	for i, w := range ws {
		n := len(m.splitWord(w))
		if used+n > budget {
			return strings.Join(ws[:i], " ")
		}
		used += n
	}
	return text
}

// Tokens returns the encoder input for text: the start token, at most
// MaxSeqLen-2 word pieces, then the end token.
func (m *Model) Tokens(text string) []string {
	limit := m.maxSeqLen - 2
	out := []string{TokenStart}
	for _, w := range words(normalize(text)) {
		for _, p := range m.splitWord(w) {
			if len(out)-1 >= limit {
				return append(out, TokenEnd)
			}
			out = append(out, p)
		}
	}
	return append(out, TokenEnd)
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, s))
}
