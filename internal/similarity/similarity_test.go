package similarity

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const testVocab = `[PAD]
[UNK]
[CLS]
[SEP]
bank
run
river
flood
##s
flo
,
`

// fakeEncoder returns a fixed vector per input text and records every text
// it was asked to encode.
type fakeEncoder struct {
	vectors map[string][]float64
	err     error
	seen    []string
}

func (f *fakeEncoder) Encode(_ context.Context, text string) ([]float64, error) {
	f.seen = append(f.seen, text)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

func newTestModel(t *testing.T, enc Encoder, opts Options) *Model {
	t.Helper()
	if enc == nil {
		enc = &fakeEncoder{}
	}
	m, err := New(enc, strings.NewReader(testVocab), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNew(t *testing.T) {
	m := newTestModel(t, nil, Options{})
	if m.VocabSize() != 11 {
		t.Errorf("VocabSize() = %d, want 11", m.VocabSize())
	}
	if m.MaxSeqLen() != DefaultMaxSeqLen {
		t.Errorf("MaxSeqLen() = %d, want %d", m.MaxSeqLen(), DefaultMaxSeqLen)
	}
}

func TestNew_Errors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		vocab string
		opts  Options
		want  string
	}{
		{"Empty", "", Options{}, "empty vocabulary"},
		{"BlankLines", "\n\n", Options{}, "empty vocabulary"},
		{"NoUnknown", "bank\nriver\n", Options{}, "no [UNK] entry"},
		{"TinySeqLen", testVocab, Options{MaxSeqLen: 2}, "no room"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(&fakeEncoder{}, strings.NewReader(tc.vocab), tc.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingModel(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "bert-base-uncased"), Options{}); err == nil {
		t.Fatal("expected error for a missing model directory")
	}
}

func TestTokens(t *testing.T) {
	m := newTestModel(t, nil, Options{})
	for _, tc := range []struct {
		input string
		want  []string
	}{
		{"bank run", []string{"[CLS]", "bank", "run", "[SEP]"}},
		{"BANK  Run", []string{"[CLS]", "bank", "run", "[SEP]"}},
		{"bänk", []string{"[CLS]", "bank", "[SEP]"}},
		{"banks", []string{"[CLS]", "bank", "##s", "[SEP]"}},
		{"bank, run", []string{"[CLS]", "bank", ",", "run", "[SEP]"}},
		{"bank; run", []string{"[CLS]", "bank", "[UNK]", "run", "[SEP]"}},
		{"zebra", []string{"[CLS]", "[UNK]", "[SEP]"}},
		{"", []string{"[CLS]", "[SEP]"}},
		{strings.Repeat("a", 101), []string{"[CLS]", "[UNK]", "[SEP]"}},
	} {
		if got := m.Tokens(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokens(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestTokens_Truncation(t *testing.T) {
	m := newTestModel(t, nil, Options{MaxSeqLen: 4})
	got := m.Tokens("bank run river flood")
	want := []string{"[CLS]", "bank", "run", "[SEP]"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
}

func TestTruncate(t *testing.T) {
	m := newTestModel(t, nil, Options{MaxSeqLen: 6})
	for _, tc := range []struct {
		name  string
		input string
		want  string
	}{
		{"FitsUnchanged", "River Bank, flood", "River Bank, flood"},
		{"CutAtWordBoundary", "Bank run river flood river", "bank run river flood"},
		// "banks" is two pieces and does not fit after three single-piece words.
		{"MultiPieceWordDropped", "bank run river banks", "bank run river"},
		{"Empty", "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Truncate(tc.input); got != tc.want {
				t.Errorf("Truncate(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	enc := &fakeEncoder{vectors: map[string][]float64{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {1, 1, 0},
		"d": {-1, 0, 0},
		"z": {0, 0, 0},
	}}
	m := newTestModel(t, enc, Options{})
	for _, tc := range []struct {
		name string
		a, b string
		want float64
	}{
		{"Identical", "a", "a", 1},
		{"Orthogonal", "a", "b", 0},
		{"Partial", "a", "c", 1 / math.Sqrt2},
		{"Opposite", "a", "d", -1},
		{"ZeroVectorScoresZero", "z", "a", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Score(tc.a, tc.b)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if !approx(got, tc.want) {
				t.Fatalf("Score(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestScore_WholeTextReachesEncoder(t *testing.T) {
	enc := &fakeEncoder{vectors: map[string][]float64{
		"river bank flood":    {1, 0.2, 0},
		"flood bank river":    {0.1, 1, 0},
		"bank":                {0.3, 0.3, 1},
		"bank bank bank bank": {1, 0, 0.2},
	}}
	m := newTestModel(t, enc, Options{})

	reordered, err := m.Score("river bank flood", "flood bank river")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if approx(reordered, 1) {
		t.Error("reordered words scored as identical")
	}
	repeated, err := m.Score("bank", "bank bank bank bank")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if approx(repeated, 1) {
		t.Error("repeated words scored as identical")
	}

	want := []string{"river bank flood", "flood bank river", "bank", "bank bank bank bank"}
	if !reflect.DeepEqual(enc.seen, want) {
		t.Errorf("encoded %q, want %q", enc.seen, want)
	}
}

func TestScore_TruncatedContentIgnored(t *testing.T) {
	enc := &fakeEncoder{}
	m := newTestModel(t, enc, Options{MaxSeqLen: 4})
	if _, err := m.Score("bank run", "bank run river flood river flood"); err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := []string{"bank run", "bank run"}
	if !reflect.DeepEqual(enc.seen, want) {
		t.Errorf("encoded %q, want %q", enc.seen, want)
	}
}

func TestScore_EncoderError(t *testing.T) {
	boom := errors.New("boom")
	m := newTestModel(t, &fakeEncoder{err: boom}, Options{})
	if _, err := m.Score("a", "b"); !errors.Is(err, boom) {
		t.Fatalf("Score error = %v, want %v", err, boom)
	}
}

func TestScore_DimensionMismatch(t *testing.T) {
	m := newTestModel(t, &fakeEncoder{vectors: map[string][]float64{"a": {1, 0}}}, Options{})
	if _, err := m.Score("a", "b"); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestScore_NilModel(t *testing.T) {
	var m *Model
	if _, err := m.Score("a", "b"); err == nil {
		t.Fatal("expected error from nil model")
	}
}

func TestCosine_Clamped(t *testing.T) {
	a := []float64{1, 0}
	if got := cosine(a, []float64{-1, 0}); !approx(got, -1) {
		t.Errorf("cosine opposite = %v, want -1", got)
	}
	if got := cosine(a, []float64{0, 0}); got != 0 {
		t.Errorf("cosine zero = %v, want 0", got)
	}
}
