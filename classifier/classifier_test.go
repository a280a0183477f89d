package classifier

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/internal/testaudio"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stump splits on feature f at threshold t
func stump(f int, t float64, left, right []float64) map[string]any {
	return map[string]any{
		"children_left":  []int{1, -1, -1},
		"children_right": []int{2, -1, -1},
		"feature":        []int{f, -2, -2},
		"threshold":      []float64{t, -2, -2},
		"value":          [][]float64{{0, 0}, left, right},
	}
}

func scalerDoc(n int) map[string]any {
	mean := make([]float64, n)
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}
	return map[string]any{
		"mean":           mean,
		"scale":          scale,
		"feature_names":  features.SchemaV1.Names()[:n],
		"schema_version": "v1",
	}
}

func forestDoc(n int, trees ...map[string]any) map[string]any {
	return map[string]any{
		"type":           KindRandomForest,
		"schema_version": "v1",
		"n_features":     n,
		"classes":        []int{0, 1},
		"trees":          trees,
	}
}

func writeJSON(t *testing.T, dir, name string, doc any) {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o644))
}

func writeModel(t *testing.T, scaler, clf any) *ModelConfig {
	t.Helper()
	dir := t.TempDir()
	writeJSON(t, dir, "scaler.json", scaler)
	writeJSON(t, dir, "classifier.json", clf)

	cfg := DefaultModelConfig()
	cfg.Dir = dir
	return cfg
}

func pitchVector(t *testing.T, pitch float64) *features.Vector {
	t.Helper()
	row := make([]float64, features.SchemaV1.Len())
	row[0] = pitch
	v, err := features.NewVector(features.SchemaV1, row)
	require.NoError(t, err)
	return v
}

func loadStumpModel(t *testing.T) *Model {
	t.Helper()
	n := features.SchemaV1.Len()
	cfg := writeModel(t, scalerDoc(n), forestDoc(n, stump(0, 0, []float64{8, 2}, []float64{1, 9})))
	m, err := LoadModel(cfg, features.SchemaV1)
	require.NoError(t, err)
	return m
}

func TestForestPrediction(t *testing.T) {
	m := loadStumpModel(t)
	assert.Equal(t, KindRandomForest, m.Info().Kind)
	assert.Equal(t, 34, m.Info().NumFeatures)

	low, err := m.Predict(pitchVector(t, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, low.Label)
	assert.InDelta(t, 0.8, low.ProbabilityHealthy, 1e-12)
	assert.InDelta(t, 0.2, low.ProbabilityAtRisk, 1e-12)
	assert.Equal(t, 20.0, low.RiskScore)
	assert.Equal(t, MessageLowRisk, low.Message)

	high, err := m.Predict(pitchVector(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, high.Label)
	assert.Equal(t, 90.0, high.RiskScore)
	assert.Equal(t, MessageHighRisk, high.Message)

	// Ties split to the left
	edge, err := m.Predict(pitchVector(t, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, edge.Label)
}

func TestForestAveragesTrees(t *testing.T) {
	n := features.SchemaV1.Len()
	clf, _, err := ParseClassifier(mustJSON(t, forestDoc(n,
		stump(0, 0, []float64{1, 0}, []float64{0, 1}),
		stump(1, 0, []float64{3, 1}, []float64{1, 3}),
		stump(2, 0, []float64{2, 1}, []float64{1, 2}),
	)))
	require.NoError(t, err)
	assert.Equal(t, 3, clf.(*RandomForest).NumTrees())

	x := make([]float64, n)
	x[0], x[1], x[2] = 1, -1, 1
	proba := clf.PredictProba(x)
	assert.InDelta(t, (0+0.75+1.0/3)/3, proba[0], 1e-12)
	assert.InDelta(t, (1+0.25+2.0/3)/3, proba[1], 1e-12)
	assert.InDelta(t, 1, proba[0]+proba[1], 1e-12)
}

func TestPredictIsDeterministic(t *testing.T) {
	m := loadStumpModel(t)
	v := pitchVector(t, 0.3)

	first, err := m.Predict(v)
	require.NoError(t, err)
	for range 50 {
		again, err := m.Predict(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLogisticRegression(t *testing.T) {
	n := features.SchemaV1.Len()
	coef := make([]float64, n)
	coef[0] = 2

	clf, version, err := ParseClassifier(mustJSON(t, map[string]any{
		"type":       KindLogisticRegression,
		"n_features": n,
		"coef":       coef,
		"intercept":  0.0,
	}))
	require.NoError(t, err)
	assert.Empty(t, version)

	scaler, err := ParseScaler(mustJSON(t, scalerDoc(n)))
	require.NoError(t, err)
	m, err := NewModel(features.SchemaV1, scaler, clf)
	require.NoError(t, err)

	even, err := m.Predict(pitchVector(t, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, even.Label)
	assert.Equal(t, 50.0, even.RiskScore)

	high, err := m.Predict(pitchVector(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, high.Label)
	assert.Equal(t, 88.08, high.RiskScore)
}

func TestScalerTransform(t *testing.T) {
	s := &StandardScaler{Mean: []float64{1, 2, 3}, Scale: []float64{2, 0, 0.5}}
	require.NoError(t, s.Validate())

	out, err := s.Transform([]float64{3, 5, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, -2}, out)

	_, err = s.Transform([]float64{1})
	assert.Error(t, err)

	assert.Error(t, (&StandardScaler{Mean: []float64{1}, Scale: []float64{-1}}).Validate())
	assert.Error(t, (&StandardScaler{Mean: []float64{1, 2}, Scale: []float64{1}}).Validate())
	assert.Error(t, (&StandardScaler{}).Validate())
}

func mustJSON(t *testing.T, doc any) []byte {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return b
}

func TestParseClassifierRejectsBadTrees(t *testing.T) {
	n := features.SchemaV1.Len()

	cycle := stump(0, 0, []float64{1, 0}, []float64{0, 1})
	cycle["children_left"] = []int{0, -1, -1}

	badFeature := stump(n, 0, []float64{1, 0}, []float64{0, 1})
	emptyLeaf := stump(0, 0, []float64{0, 0}, []float64{0, 1})
	oneChild := stump(0, 0, []float64{1, 0}, []float64{0, 1})
	oneChild["children_right"] = []int{2, 1, -1}

	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"cycle", forestDoc(n, cycle)},
		{"feature out of range", forestDoc(n, badFeature)},
		{"empty leaf", forestDoc(n, emptyLeaf)},
		{"one child", forestDoc(n, oneChild)},
		{"no trees", forestDoc(n)},
		{"unknown type", map[string]any{"type": "svm"}},
		{"multiclass", func() map[string]any {
			d := forestDoc(n, stump(0, 0, []float64{1, 0}, []float64{0, 1}))
			d["classes"] = []int{0, 1, 2}
			return d
		}()},
		{"unknown key", func() map[string]any {
			d := forestDoc(n, stump(0, 0, []float64{1, 0}, []float64{0, 1}))
			d["max_depth"] = 10
			return d
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseClassifier(mustJSON(t, tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadModelRejectsSchemaMismatch(t *testing.T) {
	n := features.SchemaV1.Len()
	tree := stump(0, 0, []float64{1, 0}, []float64{0, 1})

	t.Run("feature count", func(t *testing.T) {
		cfg := writeModel(t, scalerDoc(n-1), forestDoc(n-1, tree))
		_, err := LoadModel(cfg, features.SchemaV1)
		assert.ErrorIs(t, err, features.ErrFeatureCorrupt)
	})

	t.Run("column order", func(t *testing.T) {
		doc := scalerDoc(n)
		names := features.SchemaV1.Names()
		names[1], names[2] = names[2], names[1]
		doc["feature_names"] = names
		_, err := LoadModel(writeModel(t, doc, forestDoc(n, tree)), features.SchemaV1)
		assert.ErrorIs(t, err, features.ErrFeatureCorrupt)
	})

	t.Run("schema version", func(t *testing.T) {
		doc := forestDoc(n, tree)
		doc["schema_version"] = "v0"
		_, err := LoadModel(writeModel(t, scalerDoc(n), doc), features.SchemaV1)
		assert.ErrorIs(t, err, features.ErrFeatureCorrupt)
	})

	t.Run("foreign vector", func(t *testing.T) {
		m := loadStumpModel(t)
		other, err := features.NewSchema("v9", "a", "b")
		require.NoError(t, err)
		v, err := features.NewVector(other, []float64{1, 2})
		require.NoError(t, err)

		_, err = m.Predict(v)
		assert.ErrorIs(t, err, features.ErrFeatureCorrupt)
	})
}

func TestModelConfigPaths(t *testing.T) {
	t.Setenv("VOX_MODELS", "/srv/vox")

	cfg := &ModelConfig{Dir: "$VOX_MODELS", ScalerFile: "scaler.json", ClassifierFile: "/abs/forest.json"}
	scaler, clf, err := cfg.Paths()
	require.NoError(t, err)
	assert.Equal(t, "/srv/vox/scaler.json", scaler)
	assert.Equal(t, "/abs/forest.json", clf)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg = &ModelConfig{Dir: "~/models", ScalerFile: "s.json", ClassifierFile: "c.json"}
	scaler, _, err = cfg.Paths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "models", "s.json"), scaler)
}

func TestUnavailableModel(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "missing")

	p := OpenPredictor(cfg, features.SchemaV1)
	h := p.Health()
	assert.False(t, h.ModelLoaded)
	assert.NotEmpty(t, h.Error)
	assert.Nil(t, p.Model())

	_, err := p.Predict(context.Background(), pitchVector(t, 1))
	require.Error(t, err)

	var unavailable *ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.ErrorIs(t, UnavailablePredictor(nil).unavailable(), ErrModelUnavailable)
}

func TestLoadedPredictorHealth(t *testing.T) {
	p := NewPredictor(loadStumpModel(t))
	h := p.Health()
	assert.True(t, h.ModelLoaded)
	require.NotNil(t, h.Model)
	assert.Equal(t, "v1", h.Model.SchemaVersion)
	assert.Empty(t, h.Error)
}

func newTestService(t *testing.T, predictor *Predictor) *Service {
	t.Helper()

	loaderCfg := transcode.DefaultLoaderConfig()
	loaderCfg.Tiers = []string{transcode.TierSoundfile, transcode.TierWavArray, transcode.TierRIFF}
	loader, err := transcode.NewLoader(loaderCfg)
	require.NoError(t, err)
	pre, err := features.NewPreprocessor(nil)
	require.NoError(t, err)
	ext, err := features.NewExtractor(nil)
	require.NoError(t, err)
	pipeline, err := features.NewPipeline(loader, pre, ext)
	require.NoError(t, err)

	svc, err := NewService(pipeline, predictor)
	require.NoError(t, err)
	return svc
}

func TestServicePredict(t *testing.T) {
	svc := newTestService(t, NewPredictor(loadStumpModel(t)))

	res, err := svc.Predict(context.Background(), testaudio.WAV(t, 22050, testaudio.Voice()), "voice.wav")
	require.NoError(t, err)

	assert.Equal(t, transcode.TierSoundfile, res.Tier)
	require.NotNil(t, res.Prediction)
	// Pitch is positive, so the stump sends it right
	assert.Equal(t, 1, res.Prediction.Label)
	assert.Equal(t, 90.0, res.Prediction.RiskScore)
	assert.Equal(t, 34, res.Analysis.Vector.Len())
}

func TestServiceWithoutModel(t *testing.T) {
	svc := newTestService(t, UnavailablePredictor(os.ErrNotExist))
	assert.False(t, svc.Health().ModelLoaded)

	// Fails on the model before looking at the bytes
	_, err := svc.Predict(context.Background(), []byte("not audio"), "")
	assert.ErrorIs(t, err, ErrModelUnavailable)

	// Extraction does not need the model
	analysis, tier, err := svc.Extract(context.Background(), testaudio.WAV(t, 22050, testaudio.Voice()), "")
	require.NoError(t, err)
	assert.Equal(t, transcode.TierSoundfile, tier)
	assert.Equal(t, 34, analysis.Vector.Len())
}

func TestRound(t *testing.T) {
	assert.Equal(t, 88.08, Round(88.0797, 2))
	assert.Equal(t, 12.35, Round(12.345000001, 2))
	assert.Equal(t, 0.0, Round(0.001, 2))
}
