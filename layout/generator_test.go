package layout

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generate(t *testing.T, opts Options, seed int64) *Layout {
	t.Helper()
	l, err := GenerateProbabilistic(opts, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("GenerateProbabilistic failed: %v", err)
	}
	return l
}

func TestGenerateDeterministic(t *testing.T) {
	for _, model := range []cortex.Params{cortex.Monopole, cortex.Dipole} {
		t.Run(model.Name, func(t *testing.T) {
			opts := DefaultOptions(500, 0.2, model)
			a := generate(t, opts, 1234)
			b := generate(t, opts, 1234)

			for i := range a.Phosphenes {
				pa, pb := a.Phosphenes[i], b.Phosphenes[i]
				if pa.X != pb.X || pa.Y != pb.Y || pa.Size != pb.Size {
					t.Fatalf("phosphene %d differs between runs: %+v vs %+v", i, pa, pb)
				}
			}
		})
	}
}

func TestGenerateRegressionScenario(t *testing.T) {
	opts := DefaultOptions(3, 0.3, cortex.Monopole)
	first := generate(t, opts, 42)
	if first.Len() != 3 {
		t.Fatalf("expected 3 phosphenes, got %d", first.Len())
	}
	for run := 0; run < 5; run++ {
		again := generate(t, opts, 42)
		for i := range first.Phosphenes {
			if again.Phosphenes[i] != first.Phosphenes[i] {
				t.Fatalf("run %d phosphene %d = %+v, want %+v", run, i, again.Phosphenes[i], first.Phosphenes[i])
			}
		}
	}

	other := generate(t, opts, 43)
	same := true
	for i := range first.Phosphenes {
		if other.Phosphenes[i] != first.Phosphenes[i] {
			same = false
		}
	}
	if same {
		t.Error("expected a different seed to give a different layout")
	}
}

func TestGenerateCoverage(t *testing.T) {
	opts := DefaultOptions(1000, 0.15, cortex.Monopole)
	l := generate(t, opts, 7)
	maxEcc := 0.15 * 120

	for i, p := range l.Phosphenes {
		ecc := EccentricityAt(p.X, p.Y, l.TotalFOV)
		if ecc > maxEcc+1e-9 {
			t.Fatalf("phosphene %d eccentricity %.6f exceeds %.2f", i, ecc, maxEcc)
		}
		if math.Abs(ecc-p.Eccentricity) > 1e-9 {
			t.Fatalf("phosphene %d position implies eccentricity %.9f, recorded %.9f", i, ecc, p.Eccentricity)
		}
		if p.Size <= 0 {
			t.Fatalf("phosphene %d has non-positive size %v", i, p.Size)
		}
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			t.Fatalf("phosphene %d outside unit square: (%v, %v)", i, p.X, p.Y)
		}
	}
}

func TestGenerateFavorsFovea(t *testing.T) {
	opts := DefaultOptions(4000, 0.2, cortex.Monopole)
	l := generate(t, opts, 99)
	maxEcc := 0.2 * 120

	var inner, outer int
	for _, p := range l.Phosphenes {
		if p.Eccentricity < maxEcc/2 {
			inner++
		} else {
			outer++
		}
	}
	if inner <= outer {
		t.Errorf("expected more central phosphenes, got inner=%d outer=%d", inner, outer)
	}
}

func TestSizeGrowsWithEccentricity(t *testing.T) {
	opts := DefaultOptions(1, 0.2, cortex.Monopole)
	prev := opts.SizeDegrees(0.1)
	for _, ecc := range []float64{1, 5, 10, 20} {
		s := opts.SizeDegrees(ecc)
		if s <= prev {
			t.Errorf("size at %v deg (%v) not larger than previous (%v)", ecc, s, prev)
		}
		prev = s
	}

	want := math.Sqrt(30.0/675.0) * (10 + 0.75) / 17.3
	if got := opts.SizeDegrees(10); math.Abs(got-want) > 1e-12 {
		t.Errorf("SizeDegrees(10) = %v, want %v", got, want)
	}
}

func TestGenerateInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero count", DefaultOptions(0, 0.2, cortex.Monopole)},
		{"negative count", DefaultOptions(-5, 0.2, cortex.Monopole)},
		{"zero fraction", DefaultOptions(10, 0, cortex.Monopole)},
		{"half fraction", DefaultOptions(10, 0.5, cortex.Monopole)},
		{"large fraction", DefaultOptions(10, 0.8, cortex.Dipole)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := GenerateProbabilistic(tt.opts, rand.New(rand.NewSource(1)))
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
			if l != nil {
				t.Error("expected no layout on error")
			}
		})
	}
}

func TestInvertCDFClampsToLastIndex(t *testing.T) {
	cdf := []float64{0.2, 0.5, 0.9999999}
	if got := invertCDF(cdf, 0.99999995); got != 2 {
		t.Errorf("expected clamp to 2, got %d", got)
	}
	if got := invertCDF([]float64{0, 0, 0}, 0.3); got != 2 {
		t.Errorf("expected degenerate CDF to clamp to last index, got %d", got)
	}
	if got := invertCDF(cdf, 0.2); got != 0 {
		t.Errorf("expected first index with cdf >= u, got %d", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	opts := DefaultOptions(200, 0.25, cortex.Dipole)
	orig := generate(t, opts, 5)

	path := filepath.Join(t.TempDir(), "layout.json")
	if err := orig.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path, DefaultTotalFOV)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Record.Count() != orig.Len() {
		t.Errorf("expected count %d, got %d", orig.Len(), loaded.Record.Count())
	}
	for i := range orig.Phosphenes {
		if loaded.Record.Eccentricities[i] != orig.Record.Eccentricities[i] ||
			loaded.Record.AzimuthAngles[i] != orig.Record.AzimuthAngles[i] ||
			loaded.Record.Sizes[i] != orig.Record.Sizes[i] {
			t.Fatalf("record arrays differ at %d", i)
		}
		if loaded.Phosphenes[i] != orig.Phosphenes[i] {
			t.Fatalf("phosphene %d = %+v, want %+v", i, loaded.Phosphenes[i], orig.Phosphenes[i])
		}
	}
}

func TestLoadAcceptsPhospheneCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	data := `{"description":"two","phospheneCount":2,"eccentricities":[0,10],"azimuth_angles":[0,1.5707963267948966],"sizes":[0.5,1]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Load(path, 120)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 phosphenes, got %d", l.Len())
	}
	if p := l.Phosphenes[0]; p.X != 0.5 || p.Y != 0.5 {
		t.Errorf("expected foveal phosphene at center, got (%v, %v)", p.X, p.Y)
	}
	if got, want := l.Phosphenes[1].Y, 0.5+10.0/240; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected y %v, got %v", want, got)
	}
	if got, want := l.Phosphenes[1].Size, 1.0/240; got != want {
		t.Errorf("expected size %v, got %v", want, got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"), 120)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("missing file: expected ErrConfigNotFound, got %v", err)
	}

	garbled := filepath.Join(dir, "garbled.json")
	os.WriteFile(garbled, []byte("{not json"), 0644)
	_, err = Load(garbled, 120)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("garbled file: expected ErrConfigNotFound, got %v", err)
	}

	mismatched := filepath.Join(dir, "mismatched.json")
	os.WriteFile(mismatched, []byte(`{"nPhosphenes":2,"eccentricities":[1,2],"azimuth_angles":[0],"sizes":[1,1]}`), 0644)
	_, err = Load(mismatched, 120)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("mismatched arrays: expected ErrInvalidConfiguration, got %v", err)
	}

	wrongCount := filepath.Join(dir, "count.json")
	os.WriteFile(wrongCount, []byte(`{"nPhosphenes":3,"eccentricities":[1,2],"azimuth_angles":[0,0],"sizes":[1,1]}`), 0644)
	_, err = Load(wrongCount, 120)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("wrong count: expected ErrInvalidConfiguration, got %v", err)
	}

	conflicting := filepath.Join(dir, "conflicting.json")
	os.WriteFile(conflicting, []byte(`{"nPhosphenes":3,"phospheneCount":5,"eccentricities":[1,2,3],"azimuth_angles":[0,0,0],"sizes":[1,1,1]}`), 0644)
	_, err = Load(conflicting, 120)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("conflicting counts: expected ErrInvalidConfiguration, got %v", err)
	}

	agreeing := filepath.Join(dir, "agreeing.json")
	os.WriteFile(agreeing, []byte(`{"nPhosphenes":2,"phospheneCount":2,"eccentricities":[1,2],"azimuth_angles":[0,0],"sizes":[1,1]}`), 0644)
	if _, err := Load(agreeing, 120); err != nil {
		t.Errorf("agreeing counts: unexpected error %v", err)
	}
}

func TestGenerateFallsBackWhenFileMissing(t *testing.T) {
	cfg := config.Default().Layout
	cfg.File = filepath.Join(t.TempDir(), "missing.json")
	cfg.Count = 50

	l, err := Generate(cfg, quietLogger())
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if l.Len() != 50 {
		t.Errorf("expected 50 phosphenes, got %d", l.Len())
	}
}

func TestGenerateUsesFile(t *testing.T) {
	opts := DefaultOptions(20, 0.1, cortex.Monopole)
	orig := generate(t, opts, 3)
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := orig.Save(path); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default().Layout
	cfg.File = path
	cfg.Count = 999 // ignored when the file loads

	l, err := Generate(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if l.Len() != 20 {
		t.Errorf("expected layout from file (20), got %d", l.Len())
	}
}

func TestGenerateInvalidIsFatal(t *testing.T) {
	cfg := config.Default().Layout
	cfg.MaxEccentricityFraction = 0.6
	if _, err := Generate(cfg, quietLogger()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}

	cfg = config.Default().Layout
	cfg.Model = "tripole"
	if _, err := Generate(cfg, quietLogger()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for unknown model, got %v", err)
	}
}

func TestSeedPhrase(t *testing.T) {
	cfg := config.LayoutConfig{Seed: 10}
	if Seed(cfg) != 10 {
		t.Errorf("expected numeric seed without phrase")
	}
	cfg.SeedPhrase = "hallway-experiment"
	a := Seed(cfg)
	b := Seed(cfg)
	if a != b {
		t.Error("seed phrase hash not stable")
	}
	cfg.SeedPhrase = "hallway-experiment-2"
	if Seed(cfg) == a {
		t.Error("expected different phrases to give different seeds")
	}
}

func TestWriteCSV(t *testing.T) {
	l := generate(t, DefaultOptions(10, 0.1, cortex.Monopole), 1)
	var buf bytes.Buffer
	if err := l.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "index,eccentricity,azimuth,size_deg,x,y,size") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	var rows []PhospheneCSV
	if err := gocsv.UnmarshalBytes(buf.Bytes(), &rows); err != nil {
		t.Fatalf("reading csv back: %v", err)
	}
	if len(rows) != 10 {
		t.Errorf("expected 10 rows, got %d", len(rows))
	}
}

func TestSetSeedOverridesPhrase(t *testing.T) {
	cfg := config.LayoutConfig{Seed: 1, SeedPhrase: "hallway-experiment"}
	before := Seed(cfg)

	if dropped := SetSeed(&cfg, 99); dropped != "hallway-experiment" {
		t.Errorf("expected the phrase to be reported, got %q", dropped)
	}
	if got := Seed(cfg); got != 99 || got == before {
		t.Errorf("expected explicit seed 99 to win, got %d", got)
	}
	if dropped := SetSeed(&cfg, 7); dropped != "" {
		t.Errorf("nothing to drop, got %q", dropped)
	}
}
