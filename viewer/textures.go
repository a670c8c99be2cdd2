package viewer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

// panelTexture is a GPU texture fed from a float grid each frame.
type panelTexture struct {
	tex    rl.Texture2D
	pixels []color.RGBA
	size   int
}

func newPanelTexture(size int) *panelTexture {
	img := rl.GenImageColor(size, size, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	return &panelTexture{
		tex:    tex,
		pixels: make([]color.RGBA, size*size),
		size:   size,
	}
}

// update uploads g, which must be size×size, tinted by tint.
func (p *panelTexture) update(g *sampler.Grid, tint color.RGBA) {
	gridToRGBA(p.pixels, g, tint)
	rl.UpdateTexture(p.tex, p.pixels)
}

func (p *panelTexture) unload() {
	rl.UnloadTexture(p.tex)
}

// gridToRGBA converts intensities to tinted pixels, clamping to [0,1].
func gridToRGBA(dst []color.RGBA, g *sampler.Grid, tint color.RGBA) {
	for i, v := range g.Pix {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		dst[i] = color.RGBA{
			R: uint8(v * float32(tint.R)),
			G: uint8(v * float32(tint.G)),
			B: uint8(v * float32(tint.B)),
			A: 255,
		}
	}
}

// rasterize samples img at pixel centers into dst. A nil image clears dst.
func rasterize(dst *sampler.Grid, img sampler.Image) {
	if img == nil {
		dst.Clear()
		return
	}
	for y := 0; y < dst.H; y++ {
		v := (float32(y) + 0.5) / float32(dst.H)
		for x := 0; x < dst.W; x++ {
			u := (float32(x) + 0.5) / float32(dst.W)
			dst.Set(x, y, img.Bilinear(u, v))
		}
	}
}
