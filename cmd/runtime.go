package cmd

import (
	"fmt"

	"github.com/RyanBlaney/sonido-vox/classifier"
	"github.com/RyanBlaney/sonido-vox/config"
	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// newPipeline builds loader, preprocessor and extractor from settings
func newPipeline(settings *config.Settings) (*features.Pipeline, error) {
	loader, err := transcode.NewLoader(settings.LoaderConfig())
	if err != nil {
		return nil, err
	}
	pre, err := features.NewPreprocessor(settings.PreprocessConfig())
	if err != nil {
		return nil, err
	}
	ext, err := features.NewExtractor(settings.ExtractorConfig())
	if err != nil {
		return nil, err
	}
	return features.NewPipeline(loader, pre, ext)
}

// newService builds the pipeline and loads the model. A model that fails
// to load leaves the service running without predictions.
func newService(settings *config.Settings) (*classifier.Service, error) {
	pipeline, err := newPipeline(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to build feature pipeline: %w", err)
	}
	predictor := classifier.OpenPredictor(settings.ModelConfig(), pipeline.Extractor().Schema())
	return classifier.NewService(pipeline, predictor)
}
