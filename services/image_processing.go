package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// WhitenBackgroundFeathered pushes bright pixels towards white and returns a PNG.
// Pixels with luminance at or below lower are kept, at or above upper become
// white, and the range in between is blended linearly. A centered rectangle
// covering protect (0..1) of each dimension is left untouched.
func WhitenBackgroundFeathered(imageBytes []byte, lower, upper uint8, protect float64) ([]byte, error) {
	if lower >= upper {
		return nil, fmt.Errorf("lower threshold must be less than upper threshold")
	}
	if protect < 0 || protect > 1 {
		return nil, fmt.Errorf("protected ratio must be between 0 and 1")
	}

	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	keep := protectedRect(bounds, protect)
	span := float64(upper - lower)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := src.At(x, y)
			if (image.Point{X: x, Y: y}).In(keep) {
				out.Set(x, y, px)
				continue
			}
			out.Set(x, y, whiten(px, float64(lower), float64(upper), span))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}

func protectedRect(bounds image.Rectangle, ratio float64) image.Rectangle {
	w := int(float64(bounds.Dx()) * ratio)
	h := int(float64(bounds.Dy()) * ratio)
	x0 := bounds.Min.X + (bounds.Dx()-w)/2
	y0 := bounds.Min.Y + (bounds.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func whiten(px color.Color, lower, upper, span float64) color.Color {
	c := color.NRGBAModel.Convert(px).(color.NRGBA)
	luminance := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)

	switch {
	case luminance <= lower:
		return c
	case luminance >= upper:
		return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
	}

	t := (luminance - lower) / span
	blend := func(v uint8) uint8 {
		return uint8(math.Round(float64(v)*(1-t) + 255*t))
	}
	return color.NRGBA{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: c.A}
}

// WhitenBackgroundSmooth replaces pixels at or above threshold with white
// through a blurred mask, so the subject edge fades instead of cutting off.
// blurSigma controls the width of that fade.
func WhitenBackgroundSmooth(imageBytes []byte, threshold uint8, blurSigma float64) ([]byte, error) {
	if blurSigma <= 0 {
		return nil, fmt.Errorf("blur sigma must be positive")
	}
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := src.Bounds()

	// white marks background
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if 0.299*float64(c.R)+0.587*float64(c.G)+0.114*float64(c.B) >= float64(threshold) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	// imaging returns a zero-origin image
	blurred := imaging.Blur(mask, blurSigma)

	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			bg := float64(blurred.NRGBAAt(x-bounds.Min.X, y-bounds.Min.Y).R) / 255
			blend := func(v uint8) uint8 {
				return uint8(math.Round(float64(v)*(1-bg) + 255*bg))
			}
			out.SetNRGBA(x, y, color.NRGBA{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: c.A})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}
