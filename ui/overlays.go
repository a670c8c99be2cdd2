package ui

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Viewer overlays.
const (
	OverlayInput     OverlayID = "input"
	OverlayLayout    OverlayID = "layout"
	OverlayGaze      OverlayID = "gaze"
	OverlayInspector OverlayID = "inspector"
	OverlayPerf      OverlayID = "perf"
	OverlayControls  OverlayID = "controls"
	OverlayHelp      OverlayID = "help"
)

// Overlay categories, in help panel order.
const (
	CategoryView   = "view"
	CategoryPanels = "panels"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID
	Name        string
	Description string
	Key         int32  // toggle key, 0 = none
	KeyLabel    string // e.g. "I", "F3"
	Category    string
	Exclusive   []OverlayID // turned off when this one turns on
	Default     bool
}

// viewerOverlays is the registration table used by NewOverlayRegistry.
// The right-hand panel slot is shared between help and the sliders.
var viewerOverlays = []OverlayDescriptor{
	{OverlayInput, "Input Frame", "Show the preprocessed input next to the phosphenes", rl.KeyI, "I", CategoryView, nil, true},
	{OverlayLayout, "Phosphene Centers", "Mark nominal phosphene positions", rl.KeyL, "L", CategoryView, nil, false},
	{OverlayGaze, "Gaze Marker", "Draw the current gaze per eye", rl.KeyG, "G", CategoryView, nil, true},
	{OverlayInspector, "Inspector", "Show state of the clicked phosphene", rl.KeyN, "N", CategoryPanels, nil, true},
	{OverlayControls, "Temporal Controls", "Sliders for the temporal constants", rl.KeyT, "T", CategoryPanels, []OverlayID{OverlayHelp}, true},
	{OverlayPerf, "Performance", "Per-phase tick timings", rl.KeyF3, "F3", CategoryPanels, nil, false},
	{OverlayHelp, "Help", "List overlays and key bindings", rl.KeyH, "H", CategoryPanels, []OverlayID{OverlayControls}, false},
}

// OverlayRegistry holds overlay descriptors and their on/off state, in
// registration order.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	enabled     []bool
}

// NewOverlayRegistry creates a registry with the viewer's overlays.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{}
	for _, d := range viewerOverlays {
		r.Register(d)
	}
	return r
}

// Register adds an overlay. Registering an existing ID replaces it.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	if i := r.index(desc.ID); i >= 0 {
		r.descriptors[i] = desc
		r.enabled[i] = desc.Default
		return
	}
	r.descriptors = append(r.descriptors, desc)
	r.enabled = append(r.enabled, desc.Default)
}

func (r *OverlayRegistry) index(id OverlayID) int {
	return slices.IndexFunc(r.descriptors, func(d OverlayDescriptor) bool { return d.ID == id })
}

// Toggle flips an overlay and returns its new state. Unknown IDs stay off.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.setIndex(i, !r.enabled[i])
	return r.enabled[i]
}

// SetEnabled sets an overlay's state. Enabling turns off its exclusives.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	if i := r.index(id); i >= 0 {
		r.setIndex(i, enabled)
	}
}

func (r *OverlayRegistry) setIndex(i int, enabled bool) {
	r.enabled[i] = enabled
	if !enabled {
		return
	}
	for _, excl := range r.descriptors[i].Exclusive {
		if j := r.index(excl); j >= 0 {
			r.enabled[j] = false
		}
	}
}

// IsEnabled reports whether an overlay is on.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	i := r.index(id)
	return i >= 0 && r.enabled[i]
}

// ByCategory returns the overlays in category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, d := range r.descriptors {
		if d.Category == category {
			result = append(result, d)
		}
	}
	return result
}

// Categories returns the distinct categories in first-seen order.
func (r *OverlayRegistry) Categories() []string {
	var cats []string
	for _, d := range r.descriptors {
		if !slices.Contains(cats, d.Category) {
			cats = append(cats, d.Category)
		}
	}
	return cats
}

// HandleKeyPress toggles the overlay bound to key. ok is false when no
// overlay uses the key.
func (r *OverlayRegistry) HandleKeyPress(key int32) (id OverlayID, on, ok bool) {
	for i, d := range r.descriptors {
		if d.Key == key {
			r.setIndex(i, !r.enabled[i])
			return d.ID, r.enabled[i], true
		}
	}
	return "", false, false
}

// Keys returns the bound toggle keys, for polling.
func (r *OverlayRegistry) Keys() []int32 {
	keys := make([]int32, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		if d.Key != 0 {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// EnabledOverlays returns the IDs of overlays that are on.
func (r *OverlayRegistry) EnabledOverlays() []OverlayID {
	var result []OverlayID
	for i, d := range r.descriptors {
		if r.enabled[i] {
			result = append(result, d.ID)
		}
	}
	return result
}
