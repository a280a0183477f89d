package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from power spectra.
// All tables are built by NewMFCC, so an MFCC is safe for concurrent use.
type MFCC struct {
	params     MFCCParams
	filterBank *FilterBank
	dctMatrix  [][]float64
	lifter     []float64
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // Number of MFCC coefficients (default: 13)
	NumMelFilters   int     `json:"num_mel_filters"`  // Number of mel filters (default: 128)
	LowFreq         float64 `json:"low_freq"`         // Low frequency bound (default: 0)
	HighFreq        float64 `json:"high_freq"`        // High frequency bound (default: sampleRate/2)
	TopDB           float64 `json:"top_db"`           // Dynamic range kept below the loudest mel bin, 0 disables
	Lifter          float64 `json:"lifter"`           // Sinusoidal lifter length, 0 disables
	HTK             bool    `json:"htk"`              // Use the HTK mel formula instead of Slaney
}

// DefaultMFCCParams returns the parameters used by the feature bank
func DefaultMFCCParams() MFCCParams {
	return MFCCParams{
		NumCoefficients: 13,
		NumMelFilters:   128,
		LowFreq:         0,
		TopDB:           80,
	}
}

// NewMFCC builds filter bank, DCT and lifter tables for frames of nFFT samples
func NewMFCC(sampleRate, nFFT int, params MFCCParams) (*MFCC, error) {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 128
	}
	if params.NumCoefficients > params.NumMelFilters {
		return nil, fmt.Errorf("cannot compute %d coefficients from %d mel filters",
			params.NumCoefficients, params.NumMelFilters)
	}
	if params.HighFreq <= 0 {
		params.HighFreq = float64(sampleRate) / 2.0
	}

	ms := &MelScale{HTK: params.HTK}
	fb, err := ms.CreateFilterBank(params.NumMelFilters, nFFT, sampleRate, params.LowFreq, params.HighFreq)
	if err != nil {
		return nil, fmt.Errorf("failed to create mel filter bank: %w", err)
	}

	m := &MFCC{
		params:     params,
		filterBank: fb,
	}
	m.createDCTMatrix()

	if params.Lifter > 0 {
		m.lifter = make([]float64, params.NumCoefficients)
		for i := range m.lifter {
			m.lifter[i] = 1 + (params.Lifter/2)*math.Sin(math.Pi*float64(i+1)/params.Lifter)
		}
	}

	return m, nil
}

// ComputeFrames turns a power spectrogram (time x frequency) into one
// coefficient vector per frame. The dB floor is taken relative to the
// loudest mel bin of the whole spectrogram, so the result depends on all
// frames together.
func (m *MFCC) ComputeFrames(powerSpectrogram [][]float64) ([][]float64, error) {
	if len(powerSpectrogram) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}

	logMel := make([][]float64, len(powerSpectrogram))
	peak := math.Inf(-1)
	for t, spectrum := range powerSpectrogram {
		mel := m.filterBank.Apply(spectrum, nil)
		for i, e := range mel {
			mel[i] = common.PowerToDB(e, 1.0, 1e-10)
			peak = math.Max(peak, mel[i])
		}
		logMel[t] = mel
	}

	if m.params.TopDB > 0 {
		floor := peak - m.params.TopDB
		for _, mel := range logMel {
			for i, v := range mel {
				mel[i] = math.Max(v, floor)
			}
		}
	}

	out := make([][]float64, len(logMel))
	for t, mel := range logMel {
		coeffs := m.applyDCT(mel)
		for i, l := range m.lifter {
			coeffs[i] *= l
		}
		out[t] = coeffs
	}
	return out, nil
}

// createDCTMatrix creates an orthonormal DCT-II matrix
func (m *MFCC) createDCTMatrix() {
	n := m.params.NumMelFilters
	m.dctMatrix = make([][]float64, m.params.NumCoefficients)

	for k := range m.dctMatrix {
		row := make([]float64, n)
		norm := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			norm = math.Sqrt(1.0 / float64(n))
		}
		for i := range row {
			row[i] = norm * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		m.dctMatrix[k] = row
	}
}

// applyDCT applies the Discrete Cosine Transform
func (m *MFCC) applyDCT(logMel []float64) []float64 {
	coeffs := make([]float64, len(m.dctMatrix))
	for k, row := range m.dctMatrix {
		sum := 0.0
		for i, v := range logMel {
			sum += v * row[i]
		}
		coeffs[k] = sum
	}
	return coeffs
}

// Params returns the effective MFCC parameters
func (m *MFCC) Params() MFCCParams {
	return m.params
}
