package similarity

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// continuationPrefix marks a word piece that continues the previous one.
const continuationPrefix = "##"

// maxWordChars caps the length of a single word before it becomes [UNK].
const maxWordChars = 100

func readVocab(r io.Reader) (map[string]struct{}, error) {
	vocab := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if tok := strings.TrimSpace(sc.Text()); tok != "" {
			vocab[tok] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	if len(vocab) == 0 {
		return nil, errors.New("empty vocabulary")
	}
	if _, ok := vocab[TokenUnknown]; !ok {
		return nil, fmt.Errorf("vocabulary has no %s entry", TokenUnknown)
	}
	return vocab, nil
}

// normalize lower-cases text and strips accents, as uncased BERT does.
func normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, cases.Fold().String(text))
	if err != nil {
		return cases.Fold().String(text)
	}
	return s
}

// words splits normalized text on whitespace and isolates punctuation,
// symbols and CJK ideographs as single-rune words.
func words(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// splitWord tokenizes one word greedily, longest match first.
func (m *Model) splitWord(w string) []string {
	rs := []rune(w)
	if len(rs) > maxWordChars {
		return []string{TokenUnknown}
	}
	if _, ok := m.vocab[w]; ok {
		return []string{w}
	}

	var pieces []string
	start := 0
	for start < len(rs) {
		end := len(rs)
		found := ""
		for end > start {
			sub := string(rs[start:end])
			if start > 0 {
				sub = continuationPrefix + sub
			}
			if _, ok := m.vocab[sub]; ok {
				found = sub
				break
			}
			end--
		}
		if found == "" {
			return []string{TokenUnknown}
		}
		pieces = append(pieces, found)
		start = end
	}
	return pieces
}
