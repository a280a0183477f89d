package spectral

import (
	"math"
	"math/rand"
	"testing"

	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestAutocorrelatorMatchesDirectSum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	frame := make([]float64, 300)
	for i := range frame {
		frame[i] = rng.Float64()*2 - 1
	}

	ac, err := NewAutocorrelator(len(frame))
	require.NoError(t, err)

	got, err := ac.Compute(frame, nil)
	require.NoError(t, err)
	require.Len(t, got, len(frame))

	for _, lag := range []int{0, 1, 17, 150, 299} {
		want := 0.0
		for i := 0; i+lag < len(frame); i++ {
			want += frame[i] * frame[i+lag]
		}
		assert.InDelta(t, want, got[lag], 1e-9, "lag %d", lag)
	}

	_, err = ac.Compute(frame[:10], nil)
	assert.Error(t, err)
}

func TestMagnitudesPeakBin(t *testing.T) {
	// 8 cycles across 256 samples lands exactly on bin 8
	frame := sine(8*22050.0/256, 22050, 256, 1)
	mags := NewFFT().Magnitudes(frame, nil)
	require.Len(t, mags, 129)

	peak := 0
	for k := range mags {
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	assert.Equal(t, 8, peak)
	assert.InDelta(t, 128.0, mags[8], 1e-6)
}

func TestPowerSpectrumReusesBuffer(t *testing.T) {
	frame := sine(8*22050.0/256, 22050, 256, 1)
	dst := make([]float64, 0, 256)

	power := NewFFT().PowerSpectrum(frame, dst)
	require.Len(t, power, 129)
	assert.Same(t, &dst[:1][0], &power[0])
	assert.InDelta(t, 128.0*128.0, power[8], 1e-3)
}

func TestSTFTFrameCountCentered(t *testing.T) {
	stft, err := NewSTFT(2048, 512, true, windowing.NewHann(2048, false))
	require.NoError(t, err)

	res, err := stft.Compute(make([]float64, 22050), 22050)
	require.NoError(t, err)
	assert.Equal(t, 1+22050/512, res.TimeFrames)
	assert.Equal(t, 1025, res.FreqBins)
}

func TestSTFTParallelMatchesSerial(t *testing.T) {
	signal := sine(300, 16000, 16000, 0.7)
	window := windowing.NewHann(1024, false)

	serial, err := NewSTFT(1024, 256, true, window)
	require.NoError(t, err)
	serial.Workers = 1

	parallel, err := NewSTFT(1024, 256, true, window)
	require.NoError(t, err)
	parallel.Workers = 4

	a, err := serial.Compute(signal, 16000)
	require.NoError(t, err)
	b, err := parallel.Compute(signal, 16000)
	require.NoError(t, err)

	assert.Equal(t, a.Magnitude, b.Magnitude)
}

func TestSTFTRejectsWindowMismatch(t *testing.T) {
	_, err := NewSTFT(2048, 512, true, windowing.NewHann(1024, false))
	assert.Error(t, err)
}

func TestMelScale(t *testing.T) {
	ms := NewMelScale()
	assert.InDelta(t, 15.0, ms.HzToMel(1000), 1e-9)
	assert.InDelta(t, 3.0, ms.HzToMel(200), 1e-9)
	assert.InDelta(t, 4000.0, ms.MelToHz(ms.HzToMel(4000)), 1e-6)

	htk := &MelScale{HTK: true}
	assert.InDelta(t, 1000.0, htk.HzToMel(1000), 0.1)
}

func TestFilterBankCoversEveryFilter(t *testing.T) {
	fb, err := NewMelScale().CreateFilterBank(128, 2048, 22050, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 128, fb.NumFilters())

	for m := range fb.NumFilters() {
		peak := 0.0
		for _, w := range fb.Weights(m) {
			peak = math.Max(peak, w)
		}
		assert.Greater(t, peak, 0.0, "filter %d is empty", m)
	}

	_, err = NewMelScale().CreateFilterBank(0, 2048, 22050, 0, 0)
	assert.Error(t, err)
}

func TestMFCCOfSilenceIsFlat(t *testing.T) {
	m, err := NewMFCC(22050, 2048, DefaultMFCCParams())
	require.NoError(t, err)

	silent := [][]float64{make([]float64, 1025), make([]float64, 1025)}
	coeffs, err := m.ComputeFrames(silent)
	require.NoError(t, err)
	require.Len(t, coeffs, 2)
	require.Len(t, coeffs[0], 13)

	// Every mel bin sits at the -100 dB floor, so only c0 is non-zero
	assert.InDelta(t, -100*math.Sqrt(128), coeffs[0][0], 1e-6)
	for k := 1; k < 13; k++ {
		assert.InDelta(t, 0.0, coeffs[0][k], 1e-9)
	}
}

func TestMFCCRejectsTooManyCoefficients(t *testing.T) {
	_, err := NewMFCC(22050, 2048, MFCCParams{NumCoefficients: 40, NumMelFilters: 20})
	assert.Error(t, err)
}

func TestSpectralShapeOnSingleBin(t *testing.T) {
	// nFFT 8 at 8000 Hz: bins every 1000 Hz
	spectrum := []float64{0, 0, 1, 0, 0}

	assert.Equal(t, 2000.0, NewSpectralCentroid(8000, 8).Compute(spectrum))
	assert.Equal(t, 2000.0, NewSpectralRolloff(8000, 8, 0.85).Compute(spectrum))
	assert.Equal(t, 0.0, NewSpectralBandwidth(8000, 8).Compute(spectrum, 2000))

	silent := make([]float64, 5)
	assert.Equal(t, 0.0, NewSpectralCentroid(8000, 8).Compute(silent))
	assert.Equal(t, 0.0, NewSpectralRolloff(8000, 8, 0.85).Compute(silent))
	assert.Equal(t, 0.0, NewSpectralBandwidth(8000, 8).Compute(silent, 0))
}

func TestSpectralBandwidthTwoBins(t *testing.T) {
	spectrum := []float64{0, 1, 0, 1, 0}
	centroid := NewSpectralCentroid(8000, 8).Compute(spectrum)
	assert.Equal(t, 2000.0, centroid)
	assert.Equal(t, 1000.0, NewSpectralBandwidth(8000, 8).Compute(spectrum, centroid))
}

func TestZeroCrossingRate(t *testing.T) {
	zcr := NewZeroCrossingRate(4, 2)
	assert.Equal(t, 0.75, zcr.Compute([]float64{1, -1, 1, -1}))
	assert.Equal(t, 0.0, zcr.Compute([]float64{0, 0.5, 1, 0}))

	rates := zcr.ComputeFrames([]float64{1, -1, 1, -1, 1, -1})
	assert.Len(t, rates, 4)
}

func TestBankOnSine(t *testing.T) {
	bank, err := NewBank(DefaultBankConfig())
	require.NoError(t, err)

	res, err := bank.Compute(sine(1000, 22050, 22050, 0.5), 22050)
	require.NoError(t, err)

	assert.Equal(t, 44, res.Frames)
	assert.Len(t, res.MFCCMean, 13)
	assert.Len(t, res.MFCCStd, 13)
	assert.InDelta(t, 1000.0, res.CentroidMean, 250)
	assert.InDelta(t, 2*1000.0/22050, res.ZCRMean, 0.01)
	assert.Greater(t, res.RolloffMean, 900.0)

	for _, v := range append(res.MFCCMean, res.MFCCStd...) {
		assert.False(t, math.IsNaN(v))
	}
}

func TestBankConfigValidate(t *testing.T) {
	cfg := DefaultBankConfig()
	cfg.RolloffPercent = 1.5
	_, err := NewBank(cfg)
	assert.Error(t, err)
}
