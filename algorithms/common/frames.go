package common

import "fmt"

// TailPolicy decides what happens to a final frame shorter than the frame length
type TailPolicy int

const (
	// TailDrop discards incomplete trailing frames
	TailDrop TailPolicy = iota
	// TailPad zero-pads the last incomplete frame
	TailPad
)

func (p TailPolicy) String() string {
	switch p {
	case TailDrop:
		return "drop"
	case TailPad:
		return "pad"
	default:
		return "unknown"
	}
}

// Framer slices a signal into fixed-length overlapping frames
type Framer struct {
	FrameSize int
	HopSize   int
	Tail      TailPolicy
	// Center pads FrameSize/2 zeros on both ends so frame t is centred on sample t*HopSize
	Center bool
}

// NewFramer creates a framer that drops incomplete tail frames
func NewFramer(frameSize, hopSize int) *Framer {
	return &Framer{FrameSize: frameSize, HopSize: hopSize, Tail: TailDrop}
}

// Validate checks the frame geometry
func (f *Framer) Validate() error {
	if f.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive: %d", f.FrameSize)
	}
	if f.HopSize <= 0 {
		return fmt.Errorf("hop size must be positive: %d", f.HopSize)
	}
	return nil
}

// NumFrames returns how many frames Frames would produce for a signal of n samples
func (f *Framer) NumFrames(n int) int {
	if f.Center {
		n += 2 * (f.FrameSize / 2)
	}
	if n <= 0 {
		return 0
	}
	if n < f.FrameSize {
		if f.Tail == TailPad {
			return 1
		}
		return 0
	}

	count := (n-f.FrameSize)/f.HopSize + 1
	if f.Tail == TailPad && (count-1)*f.HopSize+f.FrameSize < n {
		count++
	}
	return count
}

// Frame copies frame number idx into dst (len(dst) must equal FrameSize),
// zero-filling anything outside the signal
func (f *Framer) Frame(signal []float64, idx int, dst []float64) {
	start := idx * f.HopSize
	if f.Center {
		start -= f.FrameSize / 2
	}

	for i := range dst {
		pos := start + i
		if pos < 0 || pos >= len(signal) {
			dst[i] = 0
			continue
		}
		dst[i] = signal[pos]
	}
}

// Frames materializes every frame of signal
func (f *Framer) Frames(signal []float64) [][]float64 {
	n := f.NumFrames(len(signal))
	frames := make([][]float64, n)
	for i := range frames {
		frames[i] = make([]float64, f.FrameSize)
		f.Frame(signal, i, frames[i])
	}
	return frames
}

// FrameCenter returns the sample index at the centre of frame idx
func (f *Framer) FrameCenter(idx int) int {
	if f.Center {
		return idx * f.HopSize
	}
	return idx*f.HopSize + f.FrameSize/2
}
