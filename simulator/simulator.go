// Package simulator advances a phosphene population one tick at a time:
// sample the input at each phosphene, step the temporal dynamics, and render
// the result per eye.
package simulator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/dynamics"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
	"github.com/neuralcodinglab/SPVGaze-sub000/render"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
	"github.com/neuralcodinglab/SPVGaze-sub000/telemetry"
)

// gridCellSize is the spatial grid cell in normalized view units.
const gridCellSize = 0.02

// Options configures a Simulator beyond the loaded config.
type Options struct {
	// Render runs the spread renderer every tick.
	Render bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Perf receives sample_step, apply and render phase timings when set.
	Perf *telemetry.PerfCollector
}

// Simulator owns the phosphene entities and advances them with Tick.
// It is not safe for concurrent use; Tick parallelizes internally.
type Simulator struct {
	layout *layout.Layout
	params dynamics.Params
	mode   config.Mode
	logger *slog.Logger
	perf   *telemetry.PerfCollector

	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Phosphene, components.Activity]
	filter *ecs.Filter3[components.Position, components.Phosphene, components.Activity]
	actMap *ecs.Map1[components.Activity]
	posMap *ecs.Map1[components.Position]
	phMap  *ecs.Map1[components.Phosphene]

	// grid indexes nominal positions for picking
	grid      *SpatialGrid
	neighbors []Neighbor

	// entities[i] is the entity for layout phosphene i
	entities []ecs.Entity

	parallel *parallelState

	renderers   [components.NumEyes]*render.Renderer
	spots       [components.NumEyes][]render.Spot
	intensities [components.NumEyes][]float32
	stimuli     [][components.NumEyes]float32
	sinks       []Sink

	tick     int32
	simTime  time.Duration
	lastGaze gaze.Sample
}

// New builds a simulator for l. Configuration errors are returned before any
// entity is created.
func New(cfg *config.Config, l *layout.Layout, opts Options) (*Simulator, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: no layout", layout.ErrInvalidConfiguration)
	}
	params := dynamics.ParamsFromConfig(cfg.Temporal)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	world := ecs.NewWorld()
	n := l.Len()

	s := &Simulator{
		layout:   l,
		params:   params,
		mode:     cfg.Derived.Mode,
		logger:   logger,
		perf:     opts.Perf,
		world:    world,
		mapper:   ecs.NewMap3[components.Position, components.Phosphene, components.Activity](world),
		filter:   ecs.NewFilter3[components.Position, components.Phosphene, components.Activity](world),
		actMap:   ecs.NewMap1[components.Activity](world),
		posMap:   ecs.NewMap1[components.Position](world),
		phMap:    ecs.NewMap1[components.Phosphene](world),
		grid:     NewSpatialGrid(gridCellSize),
		entities: make([]ecs.Entity, 0, n),
		parallel: newParallelState(n),
		stimuli:  make([][components.NumEyes]float32, n),
		lastGaze: gaze.Centered(0),
	}

	for e := range s.intensities {
		s.intensities[e] = make([]float32, n)
		s.spots[e] = make([]render.Spot, 0, n)
		if opts.Render {
			s.renderers[e] = render.NewFromConfig(cfg)
		}
	}

	s.spawnPhosphenes()

	logger.Info("simulator ready",
		"phosphenes", n,
		"mode", s.mode.String(),
		"render", opts.Render,
		"workers", s.parallel.numWorkers,
	)
	return s, nil
}

// spawnPhosphenes creates one entity per layout phosphene, in layout order.
func (s *Simulator) spawnPhosphenes() {
	for i, p := range s.layout.Phosphenes {
		pos := components.Position{X: float32(p.X), Y: float32(p.Y)}
		ph := components.Phosphene{
			Index:        int32(i),
			Size:         float32(p.Size),
			Eccentricity: float32(p.Eccentricity),
		}
		act := components.Activity{}
		entity := s.mapper.NewEntity(&pos, &ph, &act)
		s.entities = append(s.entities, entity)
		s.grid.Insert(entity, pos.X, pos.Y)
	}
}

// Tick advances the simulation by dt seconds with gaze g and one input image
// per eye. Invalid gaze falls back to the view center. A nil input image
// reads as zero stimulus.
func (s *Simulator) Tick(dt float32, g gaze.Sample, inputs [components.NumEyes]sampler.Image) {
	g = gaze.OrCenter(g)
	s.lastGaze = g
	p := s.parallel

	s.startPhase(telemetry.PhaseSampleStep)

	// Phase A: Build snapshots (single-threaded)
	p.snapshots = p.snapshots[:0]
	query := s.filter.Query()
	for query.Next() {
		pos, ph, act := query.Get()
		p.snapshots = append(p.snapshots, phospheneSnapshot{
			Entity: query.Entity(),
			Index:  ph.Index,
			Pos:    *pos,
			Size:   ph.Size,
			Act:    *act,
		})
	}

	// Phase B: Compute - sample and step, parallel for large populations
	p.frame = frameInput{
		params:  s.params.ForStep(dt),
		gaze:    g,
		inputs:  inputs,
		camLock: s.mode.SamplesShifted(),
	}
	p.compute()

	// Phase C: Apply intents (single-threaded, preserves determinism)
	s.startPhase(telemetry.PhaseApply)
	s.applyIntents(g)

	s.startPhase(telemetry.PhaseRender)
	for e, r := range s.renderers {
		if r != nil {
			r.Render(s.spots[e])
		}
	}

	s.tick++
	s.simTime += time.Duration(float64(dt) * float64(time.Second))

	for _, sink := range s.sinks {
		sink.Consume(s.tick, s.intensities)
	}
}

// applyIntents writes computed results back to ECS components and collects
// per-eye intensities and render spots.
func (s *Simulator) applyIntents(g gaze.Sample) {
	shift := s.mode.RendersShifted()
	var dx, dy [components.NumEyes]float32
	if shift {
		for e := range dx {
			eye := g.Eye(e)
			dx[e] = eye.X - sampler.Center
			dy[e] = eye.Y - sampler.Center
		}
	}

	for e := range s.spots {
		s.spots[e] = s.spots[e][:0]
	}

	for i, snap := range s.parallel.snapshots {
		in := &s.parallel.intents[i]

		act := s.actMap.Get(snap.Entity)
		if act == nil {
			continue
		}
		*act = in.Act
		s.stimuli[snap.Index] = in.Stimulus

		for e := range s.spots {
			a := in.Act.Activation[e]
			s.intensities[e][snap.Index] = a
			s.spots[e] = append(s.spots[e], render.Spot{
				X:          snap.Pos.X + dx[e],
				Y:          snap.Pos.Y + dy[e],
				Size:       snap.Size,
				Activation: a,
			})
		}
	}
}

func (s *Simulator) startPhase(phase telemetry.Phase) {
	if s.perf != nil {
		s.perf.StartPhase(phase)
	}
}

// AddSink registers a consumer of per-tick intensities.
func (s *Simulator) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// SetParams replaces the temporal constants. Invalid params are rejected and
// the current ones kept.
func (s *Simulator) SetParams(p dynamics.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

// Params returns the temporal constants.
func (s *Simulator) Params() dynamics.Params { return s.params }

// SetMode switches how gaze shifts sampling and rendering.
func (s *Simulator) SetMode(m config.Mode) {
	if m != s.mode {
		s.logger.Info("mode changed", "from", s.mode.String(), "to", m.String())
	}
	s.mode = m
}

// Mode returns the current simulation mode.
func (s *Simulator) Mode() config.Mode { return s.mode }

// Layout returns the phosphene layout.
func (s *Simulator) Layout() *layout.Layout { return s.layout }

// Len returns the number of phosphenes.
func (s *Simulator) Len() int { return len(s.entities) }

// TickCount returns the number of completed ticks.
func (s *Simulator) TickCount() int32 { return s.tick }

// SimTime returns the accumulated simulation time.
func (s *Simulator) SimTime() time.Duration { return s.simTime }

// Gaze returns the gaze used by the last tick.
func (s *Simulator) Gaze() gaze.Sample { return s.lastGaze }

// Intensities returns the per-eye activation of every phosphene, indexed like
// the layout. The slices are reused by the next Tick.
func (s *Simulator) Intensities() [components.NumEyes][]float32 { return s.intensities }

// Stimuli returns the per-eye stimulus sampled for every phosphene in the
// last tick, indexed like the layout.
func (s *Simulator) Stimuli() [][components.NumEyes]float32 { return s.stimuli }

// Output returns the rendered image for an eye, or nil when rendering is off.
func (s *Simulator) Output(eye components.Eye) *sampler.Grid {
	r := s.renderers[eye]
	if r == nil {
		return nil
	}
	return r.Output()
}

// Renderer returns the spread renderer for an eye, or nil when rendering is off.
func (s *Simulator) Renderer(eye components.Eye) *render.Renderer {
	return s.renderers[eye]
}

// Activity returns phosphene i's state.
func (s *Simulator) Activity(i int) components.Activity {
	return *s.actMap.Get(s.entities[i])
}

// Nearest returns the layout index of the phosphene whose nominal center is
// closest to (u, v), or -1 if none lies within maxDist.
func (s *Simulator) Nearest(u, v, maxDist float32) int {
	s.neighbors = s.grid.QueryRadiusInto(s.neighbors[:0], u, v, maxDist, s.posMap)
	best := -1
	var bestD float32
	for _, n := range s.neighbors {
		if best < 0 || n.DistSq < bestD {
			best = int(s.phMap.Get(n.E).Index)
			bestD = n.DistSq
		}
	}
	return best
}

// Samples returns activation and trace values per eye for statistics.
func (s *Simulator) Samples() (activation, trace [components.NumEyes][]float64) {
	n := s.Len()
	for e := range activation {
		activation[e] = make([]float64, 0, n)
		trace[e] = make([]float64, 0, n)
	}
	query := s.filter.Query()
	for query.Next() {
		_, _, act := query.Get()
		for e := range activation {
			activation[e] = append(activation[e], float64(act.Activation[e]))
			trace[e] = append(trace[e], float64(act.Trace[e]))
		}
	}
	return activation, trace
}

// Reset zeroes every phosphene's activation and trace.
func (s *Simulator) Reset() {
	query := s.filter.Query()
	for query.Next() {
		_, _, act := query.Get()
		*act = components.Activity{}
	}
	for e := range s.intensities {
		clear(s.intensities[e])
	}
	s.logger.Info("phosphene state reset", "tick", s.tick)
}

// Snapshot captures the dynamic state of every phosphene.
func (s *Simulator) Snapshot(runID string) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RunID:      runID,
		Tick:       s.tick,
		Mode:       s.mode.String(),
		Phosphenes: make([]telemetry.PhospheneState, 0, s.Len()),
	}
	for i, e := range s.entities {
		act := s.actMap.Get(e)
		p := s.layout.Phosphenes[i]
		snap.Phosphenes = append(snap.Phosphenes, telemetry.PhospheneState{
			Index:      int32(i),
			X:          float32(p.X),
			Y:          float32(p.Y),
			Activation: act.Activation,
			Trace:      act.Trace,
		})
	}
	return snap
}

// Restore loads phosphene state from a snapshot taken with the same layout.
func (s *Simulator) Restore(snap *telemetry.Snapshot) error {
	if len(snap.Phosphenes) != s.Len() {
		return fmt.Errorf("%w: snapshot has %d phosphenes, layout has %d",
			layout.ErrInvalidConfiguration, len(snap.Phosphenes), s.Len())
	}
	for _, p := range snap.Phosphenes {
		if p.Index < 0 || int(p.Index) >= s.Len() {
			return fmt.Errorf("%w: snapshot phosphene index %d out of range", layout.ErrInvalidConfiguration, p.Index)
		}
	}
	for _, p := range snap.Phosphenes {
		act := p.Activity()
		*s.actMap.Get(s.entities[p.Index]) = act
		for e := range s.intensities {
			s.intensities[e][p.Index] = act.Activation[e]
		}
	}
	s.tick = snap.Tick
	s.logger.Info("restored snapshot", "tick", snap.Tick, "run_id", snap.RunID)
	return nil
}

// Close stops the worker pool.
func (s *Simulator) Close() {
	s.parallel.stopWorkers()
}
