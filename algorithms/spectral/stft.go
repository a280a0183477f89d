package spectral

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	framer common.Framer
	window Window

	// Workers bounds the goroutines used per Compute call. Zero picks a
	// count from the frame count, one computes inline.
	Workers int
}

// STFTResult holds the magnitude spectrogram of one signal
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
	Size() int
}

// NewSTFT creates an STFT with the given frame geometry. With center set the
// signal is zero padded by windowSize/2 on both sides.
func NewSTFT(windowSize, hopSize int, center bool, window Window) (*STFT, error) {
	framer := common.Framer{FrameSize: windowSize, HopSize: hopSize, Tail: common.TailDrop, Center: center}
	if err := framer.Validate(); err != nil {
		return nil, err
	}
	if window != nil && window.Size() != windowSize {
		return nil, fmt.Errorf("window size (%d) doesn't match frame size (%d)", window.Size(), windowSize)
	}

	return &STFT{
		fft:    NewFFT(),
		framer: framer,
		window: window,
	}, nil
}

// Compute computes the magnitude spectrogram of signal. Every frame writes
// only its own row, so the result does not depend on worker scheduling.
func (s *STFT) Compute(signal []float64, sampleRate int) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	numFrames := s.framer.NumFrames(len(signal))
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	windowSize := s.framer.FrameSize
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := range magnitude {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := s.Workers
	if numWorkers <= 0 {
		numWorkers = optimalWorkerCount(numFrames)
	}
	numWorkers = min(numWorkers, numFrames)

	process := func(frameBuffer []float64, frameIdx int) error {
		s.framer.Frame(signal, frameIdx, frameBuffer)
		if s.window != nil {
			if err := s.window.ApplyInPlace(frameBuffer); err != nil {
				return err
			}
		}
		s.fft.Magnitudes(frameBuffer, magnitude[frameIdx])
		return nil
	}

	if numWorkers == 1 {
		frameBuffer := make([]float64, windowSize)
		for frameIdx := range numFrames {
			if err := process(frameBuffer, frameIdx); err != nil {
				return nil, fmt.Errorf("frame %d: %w", frameIdx, err)
			}
		}
	} else {
		jobs := make(chan int, numFrames)
		for frameIdx := range numFrames {
			jobs <- frameIdx
		}
		close(jobs)

		var (
			wg       sync.WaitGroup
			errOnce  sync.Once
			frameErr error
		)

		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()

				// Reuse frame buffer for this worker
				frameBuffer := make([]float64, windowSize)
				for frameIdx := range jobs {
					if err := process(frameBuffer, frameIdx); err != nil {
						errOnce.Do(func() { frameErr = fmt.Errorf("frame %d: %w", frameIdx, err) })
					}
				}
			}()
		}
		wg.Wait()

		if frameErr != nil {
			return nil, frameErr
		}
	}

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        s.framer.HopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(s.framer.HopSize) / float64(sampleRate),
	}, nil
}

// Power returns the squared magnitude spectrogram
func (r *STFTResult) Power() [][]float64 {
	power := make([][]float64, len(r.Magnitude))
	for t, frame := range r.Magnitude {
		row := make([]float64, len(frame))
		for k, m := range frame {
			row[k] = m * m
		}
		power[t] = row
	}
	return power
}

// optimalWorkerCount determines the number of workers based on workload
func optimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return max(1, min(numCPU, 8))
	}

	return max(1, numCPU)
}
