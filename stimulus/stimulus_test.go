package stimulus

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neuralcodinglab/SPVGaze-sub000/preprocess"
)

func TestConstant(t *testing.T) {
	f := Constant{Level: 0.3}.Frame(0)
	for eye, img := range f {
		if v := img.Bilinear(0.1, 0.9); v != 0.3 {
			t.Errorf("eye %d: got %v, want 0.3", eye, v)
		}
	}
}

func TestFlash(t *testing.T) {
	f := Flash{Level: 1, Period: time.Second, Duty: 0.25}
	tests := []struct {
		t    time.Duration
		want float32
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{300 * time.Millisecond, 0},
		{999 * time.Millisecond, 0},
		{1100 * time.Millisecond, 1},
	}
	for _, tt := range tests {
		if got := f.Frame(tt.t)[0].Bilinear(0.5, 0.5); got != tt.want {
			t.Errorf("Frame(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestDriftingNoise(t *testing.T) {
	a := NewDriftingNoise(7, 4, 1)
	b := NewDriftingNoise(7, 4, 1)

	var changed bool
	for i := 0; i < 20; i++ {
		u := float32(i) / 20
		va := a.Frame(time.Second)[0].Bilinear(u, 0.5)
		vb := b.Frame(time.Second)[0].Bilinear(u, 0.5)
		if va != vb {
			t.Fatalf("same seed should reproduce: %v vs %v", va, vb)
		}
		if va < 0 || va > 1 {
			t.Fatalf("noise value %v out of [0,1]", va)
		}
		if va != a.Frame(3*time.Second)[0].Bilinear(u, 0.5) {
			changed = true
		}
	}
	if !changed {
		t.Error("expected noise to drift over time")
	}
}

func writePNG(t *testing.T, path string, y uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = y
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestParseSequence(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 255)
	writePNG(t, filepath.Join(dir, "a.png"), 0)

	p, err := preprocess.New(preprocess.Options{Mode: preprocess.ModeIntensity, Size: 8})
	if err != nil {
		t.Fatal(err)
	}
	src, err := Parse(filepath.Join(dir, "*.png"), p, 1, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if v := src.Frame(0)[0].Bilinear(0.5, 0.5); v != 0 {
		t.Errorf("first frame should be a.png (black), got %v", v)
	}
	if v := src.Frame(150 * time.Millisecond)[1].Bilinear(0.5, 0.5); v != 1 {
		t.Errorf("second frame should be b.png (white), got %v", v)
	}
	if v := src.Frame(200 * time.Millisecond)[0].Bilinear(0.5, 0.5); v != 0 {
		t.Errorf("sequence should loop, got %v", v)
	}
}

func TestParseBuiltins(t *testing.T) {
	tests := []struct {
		desc    string
		wantErr bool
	}{
		{"constant", false},
		{"constant:0.5", false},
		{"constant:bright", true},
		{"flash:1:250ms", false},
		{"flash:1:soon", true},
		{"noise:8:0.2", false},
		{"/nonexistent/*.png", true},
	}
	for _, tt := range tests {
		_, err := Parse(tt.desc, nil, 1, time.Second)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.desc, err, tt.wantErr)
		}
	}

	src, _ := Parse("constant:0.5", nil, 1, time.Second)
	if v := src.Frame(0)[0].Bilinear(0, 0); v != 0.5 {
		t.Errorf("constant:0.5 gave %v", v)
	}
}
