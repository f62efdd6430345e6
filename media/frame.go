// Package media converts raw camera frames into transmittable analysis
// payloads: NV21 planes are repacked into a YCbCr image, JPEG-encoded at a
// fixed quality, and base64-encoded for embedding in JSON requests.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/Eladkrauz/BodyTrackClient/types"
)

// Frame encoding constants.
const (
	// FrameJPEGQuality is the fixed JPEG quality for analysis frames.
	// 70 balances upload size against enough fidelity for pose analysis.
	FrameJPEGQuality = 70

	// DefaultMaxDimension caps the longer frame side in pixels before
	// encoding. Analysis accuracy is unaffected well below capture
	// resolution, and smaller payloads keep per-frame latency low.
	DefaultMaxDimension = 640

	// MIMETypeJPEG is the MIME type of encoded frames.
	MIMETypeJPEG = "image/jpeg"
)

// Encoding errors.
var (
	// ErrNilFrame is returned when the raw frame is nil.
	ErrNilFrame = errors.New("nil raw frame")

	// ErrBadDimensions is returned when the frame dimensions are not
	// positive even numbers (4:2:0 chroma requires even width and height).
	ErrBadDimensions = errors.New("invalid frame dimensions")

	// ErrPlaneSize is returned when a plane buffer does not match the
	// frame dimensions.
	ErrPlaneSize = errors.New("plane size mismatch")
)

// EncodedFrame is a frame ready for transmission.
type EncodedFrame struct {
	// Base64 is the standard base64 JPEG payload, no line breaks.
	Base64 string

	// Width and Height are the encoded pixel dimensions (after any
	// downscale).
	Width  int
	Height int

	// ByteSize is the JPEG size in bytes before base64 expansion.
	ByteSize int

	// Rotation is the display rotation carried over from capture.
	Rotation int
}

// EncoderConfig configures frame encoding.
type EncoderConfig struct {
	// Quality is the JPEG quality (1-100). Default: FrameJPEGQuality.
	Quality int

	// MaxDimension caps the longer side in pixels (0 = no downscale).
	// Default: DefaultMaxDimension.
	MaxDimension int
}

// DefaultEncoderConfig returns the production encoding configuration.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Quality:      FrameJPEGQuality,
		MaxDimension: DefaultMaxDimension,
	}
}

// EncodeFrame converts a raw NV21 frame into a transmittable payload.
// The caller retains ownership of the raw frame; EncodeFrame never calls
// Release.
func EncodeFrame(raw *types.RawFrame, config EncoderConfig) (*EncodedFrame, error) {
	if raw == nil {
		return nil, ErrNilFrame
	}

	img, err := repackNV21(raw)
	if err != nil {
		return nil, err
	}

	quality := config.Quality
	if quality <= 0 {
		quality = FrameJPEGQuality
	}

	var encoded image.Image = img
	if config.MaxDimension > 0 {
		encoded = downscale(img, config.MaxDimension)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, encoded, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	bounds := encoded.Bounds()
	return &EncodedFrame{
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		ByteSize: buf.Len(),
		Rotation: raw.Rotation,
	}, nil
}

// repackNV21 converts the interleaved NV21 chroma plane into the planar
// layout expected by image.YCbCr. NV21 stores Cr before Cb for each 2x2
// luma block.
func repackNV21(raw *types.RawFrame) (*image.YCbCr, error) {
	w, h := raw.Width, raw.Height
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, w, h)
	}
	if len(raw.Y) < w*h {
		return nil, fmt.Errorf("%w: luma plane %d bytes, want %d", ErrPlaneSize, len(raw.Y), w*h)
	}
	if len(raw.CbCr) < w*h/2 {
		return nil, fmt.Errorf("%w: chroma plane %d bytes, want %d", ErrPlaneSize, len(raw.CbCr), w*h/2)
	}

	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	copy(img.Y, raw.Y[:w*h])

	chromaLen := w * h / 4
	for i := 0; i < chromaLen; i++ {
		img.Cr[i] = raw.CbCr[2*i]
		img.Cb[i] = raw.CbCr[2*i+1]
	}

	return img, nil
}

// downscale shrinks the image so its longer side is at most maxDim pixels,
// preserving aspect ratio. Images already within the limit are returned
// unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var targetW, targetH int
	if w >= h {
		targetW = maxDim
		targetH = h * maxDim / w
	} else {
		targetH = maxDim
		targetW = w * maxDim / h
	}
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	// CatmullRom gives high-quality downscaling at acceptable cost for the
	// target frame rates (3-10 fps).
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
