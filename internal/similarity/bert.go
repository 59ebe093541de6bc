package similarity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nlpodyssey/cybertron/pkg/models/bert"
	"github.com/nlpodyssey/cybertron/pkg/tasks"
	"github.com/nlpodyssey/cybertron/pkg/tasks/textencoding"
)

// vocabFile is the word-piece vocabulary shipped with every BERT model.
const vocabFile = "vocab.txt"

// bertEncoder mean-pools the last hidden state of a BERT model.
type bertEncoder struct {
	model textencoding.Interface
}

func (e bertEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	res, err := e.model.Encode(ctx, text, int(bert.MeanPooling))
	if err != nil {
		return nil, err
	}
	return res.Vector.Data().F64(), nil
}

// Load loads the BERT model stored in the directory path, for example
// "models/bert-base-uncased". The model is read from disk only, unless
// opts.Download is set.
func Load(path string, opts Options) (*Model, error) {
	policy := tasks.DownloadNever
	if opts.Download {
		policy = tasks.DownloadMissing
	}
	enc, err := tasks.Load[textencoding.Interface](&tasks.Config{
		ModelsDir:      filepath.Dir(path),
		ModelName:      filepath.Base(path),
		DownloadPolicy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}

	f, err := os.Open(filepath.Join(path, vocabFile))
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	defer f.Close()

	m, err := New(bertEncoder{model: enc}, f, opts)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}
