// Package sampler reads per-phosphene stimulus values from an activation image.
package sampler

import (
	"image"
	"image/color"
)

// Image is a single-channel activation buffer addressed in normalized
// coordinates. u runs left to right, v runs top to bottom, both in [0,1].
type Image interface {
	Bilinear(u, v float32) float32
}

// Grid is a row-major float32 image. It implements Image.
type Grid struct {
	W, H int
	Pix  []float32
}

// NewGrid allocates a zeroed w×h grid.
func NewGrid(w, h int) *Grid {
	return &Grid{W: w, H: h, Pix: make([]float32, w*h)}
}

// GridFromGray copies an 8-bit grayscale image into a grid scaled to [0,1].
func GridFromGray(img *image.Gray) *Grid {
	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy())
	for y := 0; y < g.H; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+g.W]
		for x, v := range row {
			g.Pix[y*g.W+x] = float32(v) / 255
		}
	}
	return g
}

// GridFromRGBA copies the red channel of img into a grid scaled to [0,1].
// Grayscale RGBA output carries the same value in every channel.
func GridFromRGBA(img *image.RGBA) *Grid {
	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy())
	for y := 0; y < g.H; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*g.W]
		for x := 0; x < g.W; x++ {
			g.Pix[y*g.W+x] = float32(row[4*x]) / 255
		}
	}
	return g
}

// At returns the value at integer pixel coordinates.
func (g *Grid) At(x, y int) float32 { return g.Pix[y*g.W+x] }

// Set writes the value at integer pixel coordinates.
func (g *Grid) Set(x, y int, v float32) { g.Pix[y*g.W+x] = v }

// Fill sets every pixel to v.
func (g *Grid) Fill(v float32) {
	for i := range g.Pix {
		g.Pix[i] = v
	}
}

// Clear zeroes the grid.
func (g *Grid) Clear() {
	clear(g.Pix)
}

// Bilinear samples the grid at normalized coordinates. Pixel centers sit at
// u = x/(W-1), so u=0 and u=1 hit the first and last column exactly.
// Coordinates outside [0,1] are clamped; callers that need out-of-bounds
// rejection use Sample.
func (g *Grid) Bilinear(u, v float32) float32 {
	if g.W == 0 || g.H == 0 {
		return 0
	}
	fx := clamp01(u) * float32(g.W-1)
	fy := clamp01(v) * float32(g.H-1)

	x0 := int(fx)
	y0 := int(fy)
	x1 := min(x0+1, g.W-1)
	y1 := min(y0+1, g.H-1)
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	v00 := g.Pix[y0*g.W+x0]
	v10 := g.Pix[y0*g.W+x1]
	v01 := g.Pix[y1*g.W+x0]
	v11 := g.Pix[y1*g.W+x1]

	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*ty
}

// Gray converts the grid to an 8-bit image, clipping to [0,1].
func (g *Grid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.W, g.H))
	for i, v := range g.Pix {
		img.Pix[i] = uint8(clamp01(v)*255 + 0.5)
	}
	return img
}

// gridImage adapts a Grid to image.Image.
type gridImage struct{ g *Grid }

// AsImage wraps the grid as a read-only image.Image.
func (g *Grid) AsImage() image.Image { return gridImage{g} }

func (gi gridImage) ColorModel() color.Model { return color.GrayModel }
func (gi gridImage) Bounds() image.Rectangle { return image.Rect(0, 0, gi.g.W, gi.g.H) }
func (gi gridImage) At(x, y int) color.Color {
	return color.Gray{Y: uint8(clamp01(gi.g.At(x, y))*255 + 0.5)}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
