package srs

// Params defines the tunable constants of the review scheduler.
type Params struct {
	// Ease factor bounds and per-outcome adjustments
	MinEaseFactor        float64
	InitialEaseFactor    float64
	CorrectEaseBonus     float64
	IncorrectEasePenalty float64

	// Interval bounds in days
	InitialIntervalDays float64
	LapseIntervalDays   float64
	MaxIntervalDays     float64

	// Mastery thresholds
	MasteryMinCorrect  int
	MasteryMinAccuracy float64
}

// ParamsConfig allows overriding the default parameters. Zero values keep
// the default.
type ParamsConfig struct {
	MinEaseFactor        float64
	InitialEaseFactor    float64
	CorrectEaseBonus     float64
	IncorrectEasePenalty float64

	InitialIntervalDays float64
	LapseIntervalDays   float64
	MaxIntervalDays     float64

	MasteryMinCorrect  int
	MasteryMinAccuracy float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:        1.3,
		InitialEaseFactor:    2.5,
		CorrectEaseBonus:     0.1,
		IncorrectEasePenalty: 0.2,

		InitialIntervalDays: 1,
		LapseIntervalDays:   1,
		MaxIntervalDays:     365,

		MasteryMinCorrect:  3,
		MasteryMinAccuracy: 0.8,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if config.CorrectEaseBonus > 0 {
		params.CorrectEaseBonus = config.CorrectEaseBonus
	}
	if config.IncorrectEasePenalty > 0 {
		params.IncorrectEasePenalty = config.IncorrectEasePenalty
	}

	if config.InitialIntervalDays > 0 {
		params.InitialIntervalDays = config.InitialIntervalDays
	}
	if config.LapseIntervalDays > 0 {
		params.LapseIntervalDays = config.LapseIntervalDays
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	if config.MasteryMinCorrect > 0 {
		params.MasteryMinCorrect = config.MasteryMinCorrect
	}
	if config.MasteryMinAccuracy > 0 {
		params.MasteryMinAccuracy = config.MasteryMinAccuracy
	}

	// The initial ease can never sit below the floor.
	if params.InitialEaseFactor < params.MinEaseFactor {
		params.InitialEaseFactor = params.MinEaseFactor
	}

	return params
}
