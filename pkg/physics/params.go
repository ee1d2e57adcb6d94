package physics

// SimulationParams captures every tunable of the force solver. A simulation
// instance copies the live settings once at construction; changing behavior
// means constructing a new instance.
type SimulationParams struct {
	Iterations           int     `json:"iterations" yaml:"iterations"`
	SpringStrength       float32 `json:"springStrength" yaml:"spring_strength"`
	RepulsionStrength    float32 `json:"repulsionStrength" yaml:"repulsion_strength"`
	Damping              float32 `json:"damping" yaml:"damping"`
	MaxRepulsionDistance float32 `json:"maxRepulsionDistance" yaml:"max_repulsion_distance"`
	ViewportBounds       float32 `json:"viewportBounds" yaml:"viewport_bounds"`
	MassScale            float32 `json:"massScale" yaml:"mass_scale"`
	BoundaryDamping      float32 `json:"boundaryDamping" yaml:"boundary_damping"`
	BoundsEnabled        bool    `json:"boundsEnabled" yaml:"bounds_enabled"`
	TimeStep             float32 `json:"timeStep" yaml:"time_step"`
	Phase                string  `json:"phase" yaml:"phase"`
	Mode                 string  `json:"mode" yaml:"mode"`
}

// DefaultParams returns the solver tuning used when no settings file
// overrides it.
func DefaultParams() SimulationParams {
	return SimulationParams{
		Iterations:           1,
		SpringStrength:       0.05,
		RepulsionStrength:    0.1,
		Damping:              0.95,
		MaxRepulsionDistance: 10.0,
		ViewportBounds:       100.0,
		MassScale:            1.0,
		BoundaryDamping:      0.9,
		BoundsEnabled:        false,
		TimeStep:             0.016,
		Phase:                "dynamic",
		Mode:                 "local",
	}
}

// EffectiveMass converts the stored uint8 mass into the solver's working
// value: (raw/255) * 10 * mass scale.
func (p SimulationParams) EffectiveMass(raw uint8) float32 {
	return float32(raw) / 255.0 * 10.0 * p.MassScale
}
