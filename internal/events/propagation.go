package events

// PropagationConfig holds the per-modality speed and decay constants.
type PropagationConfig struct {
	VisionFlashCycles uint64  `yaml:"vision_flash_cycles"`
	SpeedOfSound      float64 `yaml:"speed_of_sound"`
	MaxSoundDistance  float64 `yaml:"max_sound_distance"`
	SpeedOfSmell      float64 `yaml:"speed_of_smell"`
	MaxSmellDistance  float64 `yaml:"max_smell_distance"`
}

// DefaultPropagationConfig returns the stock constants.
func DefaultPropagationConfig() PropagationConfig {
	return PropagationConfig{
		VisionFlashCycles: 3,
		SpeedOfSound:      12,
		MaxSoundDistance:  84,
		SpeedOfSmell:      2,
		MaxSmellDistance:  20,
	}
}

// Propagator creates events and advances them once per cycle. It holds no
// per-event state, so distinct events may be propagated concurrently.
type Propagator struct {
	cfg     PropagationConfig
	catalog map[Kind]KindSpec
}

// NewPropagator builds a propagator. A nil catalog uses DefaultCatalog.
func NewPropagator(cfg PropagationConfig, catalog map[Kind]KindSpec) *Propagator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Propagator{cfg: cfg, catalog: catalog}
}

// Config returns the propagation constants in use.
func (p *Propagator) Config() PropagationConfig {
	return p.cfg
}

// New creates an event from a command at the given cycle.
func (p *Propagator) New(id EventID, cycle uint64, cmd CreateCommand) (*Event, error) {
	spec, ok := p.catalog[cmd.Kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	props := make([]Property, len(spec.Properties))
	copy(props, spec.Properties)
	for i := range props {
		if v, ok := cmd.Values[props[i].Type]; ok {
			props[i].Value = v
		}
	}

	e := &Event{
		ID:               id,
		Kind:             cmd.Kind,
		Origin:           cmd.Origin,
		CreatedAt:        cycle,
		MaxAge:           spec.MaxAge,
		Intensity:        spec.Intensity,
		MaxSoundDistance: p.cfg.MaxSoundDistance,
		MaxSmellDistance: p.cfg.MaxSmellDistance,
		Properties:       props,
	}
	if cmd.MaxAge > 0 {
		e.MaxAge = cmd.MaxAge
	}
	if cmd.Intensity > 0 {
		e.Intensity = cmd.Intensity
	}
	if cmd.MaxSoundDistance > 0 {
		e.MaxSoundDistance = cmd.MaxSoundDistance
	}
	if cmd.MaxSmellDistance > 0 {
		e.MaxSmellDistance = cmd.MaxSmellDistance
	}

	e.Visible = e.Supports(Vision)
	e.Audible = e.Supports(Hearing)
	e.Smellable = e.Supports(Smell)

	if spec.Mode == ModeFullyPropagated {
		e.SoundRadius = e.MaxSoundDistance
		e.SmellRadius = e.MaxSmellDistance
	}
	return e, nil
}

// Propagate advances one event by one cycle.
func (p *Propagator) Propagate(e *Event) {
	e.Age++

	switch p.modeOf(e.Kind) {
	case ModeStatic:
		return
	case ModeFullyPropagated:
		p.propagateFull(e)
	default:
		p.propagateStandard(e)
	}
}

func (p *Propagator) modeOf(k Kind) Mode {
	if spec, ok := p.catalog[k]; ok {
		return spec.Mode
	}
	return ModeStandard
}

func (p *Propagator) propagateStandard(e *Event) {
	if e.Supports(Vision) && e.Age > p.cfg.VisionFlashCycles {
		e.Visible = false
	}
	if e.Supports(Hearing) {
		e.SoundRadius, e.Audible, e.soundCapped = grow(
			e.SoundRadius, p.cfg.SpeedOfSound, e.MaxSoundDistance, e.Audible, e.soundCapped)
	}
	if e.Supports(Smell) {
		e.SmellRadius, e.Smellable, e.smellCapped = grow(
			e.SmellRadius, p.cfg.SpeedOfSmell, e.MaxSmellDistance, e.Smellable, e.smellCapped)
	}
}

// propagateFull keeps radii at their caps. The flash still fades like a
// standard event; sound and smell persist until age passes max age.
func (p *Propagator) propagateFull(e *Event) {
	if e.Supports(Vision) && e.Age > p.cfg.VisionFlashCycles {
		e.Visible = false
	}
	e.SoundRadius = e.MaxSoundDistance
	e.SmellRadius = e.MaxSmellDistance
	if e.Age > e.MaxAge {
		e.Audible = false
		e.Smellable = false
	}
}

// grow advances one radius-based modality. The cycle on which the radius
// first reaches max is the last perceivable one.
func grow(radius, speed, max float64, on, capped bool) (float64, bool, bool) {
	if capped {
		return radius, false, true
	}
	radius += speed
	if radius >= max {
		return max, on, true
	}
	return radius, on, false
}
