package model

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// ImageNet normalization statistics the network was trained with.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess takes the centered square of img, scales it to size×size and
// writes it into dst as normalized CHW float32 values. Alpha is dropped and
// the straight RGB values are kept. dst must hold exactly 3*size*size values.
func Preprocess(img image.Image, size int, dst []float32) error {
	plane := size * size
	if len(dst) != 3*plane {
		return fmt.Errorf("%w: input buffer holds %d values, need %d", ErrArchitectureMismatch, len(dst), 3*plane)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return fmt.Errorf("empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	resized := resize.Resize(uint(size), uint(size), opaqueSquare(img), resize.Bilinear)

	rb := resized.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()

			i := y*size + x
			dst[i] = (float32(r)/65535.0 - ImageNetMean[0]) / ImageNetStd[0]
			dst[plane+i] = (float32(g)/65535.0 - ImageNetMean[1]) / ImageNetStd[1]
			dst[2*plane+i] = (float32(b)/65535.0 - ImageNetMean[2]) / ImageNetStd[2]
		}
	}

	return nil
}

// opaqueSquare copies the centered square of img into a fully opaque RGBA
// image, un-premultiplying each pixel on the way.
func opaqueSquare(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy())
	offX := bounds.Min.X + (bounds.Dx()-side)/2
	offY := bounds.Min.Y + (bounds.Dy()-side)/2

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			c := color.NRGBAModel.Convert(img.At(offX+x, offY+y)).(color.NRGBA)
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}
