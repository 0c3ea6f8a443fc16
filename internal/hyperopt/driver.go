package hyperopt

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status reports how a trial ended.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Result is the objective's verdict on one parameter sample. Loss is
// the quantity being minimized and is only meaningful when Status is
// StatusOK.
type Result struct {
	Loss     float64       `json:"loss"`
	Status   Status        `json:"status"`
	EvalTime time.Duration `json:"eval_time"`
}

// Objective evaluates one parameter sample end to end. A returned
// error marks the trial failed; the search continues with the next
// sample.
type Objective func(params map[string]float64) (Result, error)

// Trial records one objective evaluation.
type Trial struct {
	ID        string             `json:"id"`
	Params    map[string]float64 `json:"params"`
	Result    Result             `json:"result"`
	Err       string             `json:"error,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at"`
}

// Config configures a search run.
type Config struct {
	// Trials is the number of samples to evaluate.
	Trials int `json:"trials"`

	// Seed fixes the sample sequence.
	Seed uint64 `json:"seed"`

	// Logger receives per-trial events. Nil means the global logger.
	Logger *zerolog.Logger `json:"-"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", c.Trials)
	}
	return nil
}

// Search runs sequential random search: cfg.Trials samples drawn from
// space, one objective evaluation each. Every trial is recorded, but
// failed trials are never selected; best points at the successful
// trial with the lowest loss. Search fails only when the configuration
// is invalid or no trial succeeds.
func Search(space Space, objective Objective, cfg Config) (trials []Trial, best *Trial, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("hyperopt config: %w", err)
	}
	if err := space.Validate(); err != nil {
		return nil, nil, fmt.Errorf("hyperopt: %w", err)
	}
	logger := resolveLogger(cfg.Logger)

	src := rand.NewPCG(cfg.Seed, cfg.Seed)
	trials = make([]Trial, 0, cfg.Trials)
	bestIdx := -1
	for i := 0; i < cfg.Trials; i++ {
		trial := Trial{
			ID:        uuid.NewString(),
			Params:    space.Sample(src),
			StartedAt: time.Now().UTC(),
		}
		result, objErr := objective(trial.Params)
		trial.EndedAt = time.Now().UTC()

		if objErr != nil {
			result.Status = StatusFailed
			trial.Err = objErr.Error()
			if result.EvalTime == 0 {
				result.EvalTime = trial.EndedAt.Sub(trial.StartedAt)
			}
		} else if result.Status == "" {
			result.Status = StatusOK
		}
		trial.Result = result
		trials = append(trials, trial)

		if result.Status == StatusOK {
			if bestIdx < 0 || result.Loss < trials[bestIdx].Result.Loss {
				bestIdx = i
			}
			logger.Info().
				Str("trial_id", trial.ID).
				Int("trial", i).
				Float64("loss", result.Loss).
				Dur("eval_time", result.EvalTime).
				Interface("params", trial.Params).
				Msg("trial complete")
		} else {
			logger.Warn().
				Str("trial_id", trial.ID).
				Int("trial", i).
				Str("error", trial.Err).
				Interface("params", trial.Params).
				Msg("trial failed")
		}
	}
	if bestIdx < 0 {
		return trials, nil, fmt.Errorf("hyperopt: all %d trials failed", cfg.Trials)
	}

	logger.Info().
		Str("trial_id", trials[bestIdx].ID).
		Float64("loss", trials[bestIdx].Result.Loss).
		Interface("params", trials[bestIdx].Params).
		Msg("search complete")
	return trials, &trials[bestIdx], nil
}

func resolveLogger(l *zerolog.Logger) zerolog.Logger {
	if l != nil {
		return *l
	}
	return log.Logger
}
