package camera

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	cam := New(10, 20, 512)

	// Should be centered on the view
	if cam.X != 0.5 || cam.Y != 0.5 {
		t.Errorf("expected camera at (0.5, 0.5), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}

func TestViewToScreenCentered(t *testing.T) {
	cam := New(10, 20, 512)

	sx, sy := cam.ViewToScreen(0.5, 0.5)
	if math.Abs(float64(sx-266)) > 0.01 || math.Abs(float64(sy-276)) > 0.01 {
		t.Errorf("expected panel center (266, 276), got (%f, %f)", sx, sy)
	}

	// Corners of the view land on the panel corners at zoom 1
	sx, sy = cam.ViewToScreen(0, 1)
	if math.Abs(float64(sx-10)) > 0.01 || math.Abs(float64(sy-532)) > 0.01 {
		t.Errorf("expected (10, 532), got (%f, %f)", sx, sy)
	}
}

func TestScreenToViewRoundtrip(t *testing.T) {
	cam := New(10, 20, 512)
	cam.SetZoom(2.5)
	cam.Pan(40, -30)

	testCases := []struct{ sx, sy float32 }{
		{266, 276}, // center
		{15, 25},   // top-left
		{500, 520}, // near bottom-right
	}

	for _, tc := range testCases {
		u, v := cam.ScreenToView(tc.sx, tc.sy)
		sx, sy := cam.ViewToScreen(u, v)
		if math.Abs(float64(sx-tc.sx)) > 0.01 || math.Abs(float64(sy-tc.sy)) > 0.01 {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, u, v, sx, sy)
		}
	}
}

func TestContains(t *testing.T) {
	cam := New(10, 20, 100)
	if !cam.Contains(10, 20) || !cam.Contains(109, 119) {
		t.Error("panel corners should be inside")
	}
	if cam.Contains(110, 50) || cam.Contains(5, 50) {
		t.Error("points beside the panel should be outside")
	}
}

func TestPanStaysInView(t *testing.T) {
	cam := New(0, 0, 512)

	// At zoom 1 the whole view is shown, so panning is a no-op
	cam.Pan(100, 100)
	if cam.X != 0.5 || cam.Y != 0.5 {
		t.Errorf("expected no pan at zoom 1, got (%f, %f)", cam.X, cam.Y)
	}

	cam.SetZoom(2)
	cam.Pan(-10000, 0)
	minU, _, _, _ := cam.VisibleViewBounds()
	if math.Abs(float64(minU)) > 1e-6 {
		t.Errorf("expected left edge clamped to 0, got %f", minU)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(0, 0, 512)

	cam.SetZoom(0.1) // Below min
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom clamped to 1.0, got %f", cam.Zoom)
	}

	cam.SetZoom(100.0) // Above max
	if cam.Zoom != 8.0 {
		t.Errorf("expected zoom clamped to 8.0, got %f", cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(0, 0, 512)
	cam.SetZoom(4)

	// Visible range is 0.375..0.625
	if !cam.IsVisible(0.5, 0.5, 0.01) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(0.9, 0.9, 0.01) {
		t.Error("far point should not be visible")
	}
	if !cam.IsVisible(0.7, 0.5, 0.1) {
		t.Error("edge point with large radius should be visible")
	}
}

func TestReset(t *testing.T) {
	cam := New(0, 0, 512)
	cam.SetZoom(3)
	cam.Pan(50, 50)

	cam.Reset()

	if cam.X != 0.5 || cam.Y != 0.5 {
		t.Errorf("expected position (0.5, 0.5), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}
