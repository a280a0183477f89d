package features

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// Pipeline runs Load, Preprocess and Extract for one upload. It has no
// per-request state; each call runs to completion on the calling goroutine
// apart from the extractor's own fan-out.
type Pipeline struct {
	loader       *transcode.Loader
	preprocessor *Preprocessor
	extractor    *Extractor
	logger       logging.Logger
}

// NewPipeline wires the three stages together
func NewPipeline(loader *transcode.Loader, preprocessor *Preprocessor, extractor *Extractor) (*Pipeline, error) {
	if loader == nil || preprocessor == nil || extractor == nil {
		return nil, fmt.Errorf("loader, preprocessor and extractor are required")
	}
	return &Pipeline{
		loader:       loader,
		preprocessor: preprocessor,
		extractor:    extractor,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_pipeline",
		}),
	}, nil
}

// Extractor returns the extraction stage
func (p *Pipeline) Extractor() *Extractor {
	return p.extractor
}

// Loader returns the decoding stage
func (p *Pipeline) Loader() *transcode.Loader {
	return p.loader
}

// Run decodes data and returns its analysis. hint is a file name or
// content type used to pick decoders; it may be empty.
func (p *Pipeline) Run(ctx context.Context, data []byte, hint string) (*Analysis, *transcode.AudioData, error) {
	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
	})

	audio, err := p.loader.Load(ctx, data, hint)
	if err != nil {
		return nil, nil, err
	}

	conditioned, err := p.preprocessor.Process(ctx, audio)
	if err != nil {
		return nil, audio, err
	}

	analysis, err := p.extractor.Analyze(ctx, conditioned)
	if err != nil {
		return nil, audio, err
	}

	logger.Info("Recording analyzed", logging.Fields{
		"tier":       audio.Tier,
		"duration":   conditioned.Duration.Seconds(),
		"elapsed_ms": analysis.Elapsed.Milliseconds(),
	})
	return analysis, audio, nil
}
