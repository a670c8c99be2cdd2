package viewer

import "github.com/neuralcodinglab/SPVGaze-sub000/stimulus"

// NamedSource is a stimulus source the viewer can switch to.
type NamedSource struct {
	Name   string
	Source stimulus.Source
}

// sourceCycle steps through the available sources in order.
type sourceCycle struct {
	sources []NamedSource
	cur     int
}

func (c *sourceCycle) current() NamedSource {
	if len(c.sources) == 0 {
		return NamedSource{}
	}
	return c.sources[c.cur]
}

// next advances to the following source, wrapping around. ok is false when
// there is nothing to switch to.
func (c *sourceCycle) next() (s NamedSource, ok bool) {
	if len(c.sources) < 2 {
		return c.current(), false
	}
	c.cur = (c.cur + 1) % len(c.sources)
	return c.sources[c.cur], true
}
