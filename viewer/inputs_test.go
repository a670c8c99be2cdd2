package viewer

import (
	"testing"

	"github.com/neuralcodinglab/SPVGaze-sub000/stimulus"
)

func TestSourceCycleWraps(t *testing.T) {
	c := sourceCycle{sources: []NamedSource{
		{Name: "noise", Source: stimulus.NewDriftingNoise(1, 4, 0.5)},
		{Name: "flash", Source: stimulus.Flash{Level: 1}},
		{Name: "constant", Source: stimulus.Constant{Level: 0.5}},
	}}

	if c.current().Name != "noise" {
		t.Fatalf("expected to start at the first source, got %q", c.current().Name)
	}
	var names []string
	for i := 0; i < 3; i++ {
		s, ok := c.next()
		if !ok {
			t.Fatal("expected a source to switch to")
		}
		names = append(names, s.Name)
	}
	if names[0] != "flash" || names[1] != "constant" || names[2] != "noise" {
		t.Errorf("unexpected order %v", names)
	}
}

func TestSourceCycleSingle(t *testing.T) {
	c := sourceCycle{sources: []NamedSource{{Name: "only"}}}
	if s, ok := c.next(); ok || s.Name != "only" {
		t.Errorf("single source should not switch, got %q %v", s.Name, ok)
	}

	var empty sourceCycle
	if _, ok := empty.next(); ok {
		t.Error("empty cycle should not switch")
	}
	if empty.current().Name != "" {
		t.Error("empty cycle has no current source")
	}
}
