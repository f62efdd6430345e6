package types

import "sync"

// RawFrame is a single camera frame as delivered by the capture source:
// a full-resolution luma plane plus an interleaved chroma plane (NV21
// layout, the native output of most mobile camera pipelines).
//
// The frame owns a release hook tied to the underlying capture buffer.
// The dispatch engine guarantees Release is invoked for every submitted
// frame regardless of whether the frame is sent or dropped.
type RawFrame struct {
	// Width and Height are the pixel dimensions of the luma plane.
	Width  int
	Height int

	// Y is the luma plane, Width*Height bytes, row-major.
	Y []byte

	// CbCr is the interleaved chroma plane, Width*Height/2 bytes
	// (2x2 subsampled, Cr then Cb per NV21).
	CbCr []byte

	// Rotation is the clockwise rotation in degrees needed to display the
	// frame upright (0, 90, 180, 270). Carried as capture metadata; the
	// analysis service applies it server-side.
	Rotation int

	releaseOnce sync.Once
	release     func()
}

// NewRawFrame wraps capture buffers into a RawFrame. The release hook may
// be nil when the buffers are not pooled.
func NewRawFrame(width, height int, y, cbcr []byte, rotation int, release func()) *RawFrame {
	return &RawFrame{
		Width:    width,
		Height:   height,
		Y:        y,
		CbCr:     cbcr,
		Rotation: rotation,
		release:  release,
	}
}

// Release returns the underlying capture buffer to its owner. Safe to call
// multiple times; only the first call has effect.
func (f *RawFrame) Release() {
	f.releaseOnce.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}
