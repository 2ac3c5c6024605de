// Package sampler provides posterior samplers for change-point models.
package sampler

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/schema"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTuneInterval is the number of sweeps between step size updates.
	DefaultTuneInterval = 50
	// DefaultPriorJumpProb is the chance that a change-point coordinate is
	// proposed from its prior instead of by a local step.
	DefaultPriorJumpProb = 0.1

	jitterScale     = 0.1
	maxInitAttempts = 100
)

// initialSteps are the random-walk scales each coordinate block starts from.
var initialSteps = map[model.CoordKind]float64{
	model.CoordChangepoint: 0.5,
	model.CoordLocation:    0.01,
	model.CoordScale:       0.1,
	model.CoordCoefficient: 0.01,
}

// Metropolis is an adaptive component-wise random-walk Metropolis sampler.
// Each sweep updates every coordinate once; step sizes are tuned from the
// batch acceptance rate during the tuning phase and then frozen.
type Metropolis struct {
	TuneInterval  int
	PriorJumpProb float64
	Logger        zerolog.Logger
}

// NewMetropolis returns a sampler with default tuning.
func NewMetropolis(logger zerolog.Logger) *Metropolis {
	return &Metropolis{
		TuneInterval:  DefaultTuneInterval,
		PriorJumpProb: DefaultPriorJumpProb,
		Logger:        logger,
	}
}

// Sample runs opts.Chains independent chains, at most opts.Workers at a time
// (unbounded when zero). Chain c draws from a PCG stream seeded by
// (opts.Seed, c), so results do not depend on scheduling.
func (s *Metropolis) Sample(ctx context.Context, target model.Target, opts schema.SampleOptions) (*model.Trace, error) {
	if err := model.ValidateOptions(opts); err != nil {
		return nil, err
	}
	trace := &model.Trace{
		Draws: make([][][]float64, opts.Chains),
		Stats: make([]schema.ChainStats, opts.Chains),
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for c := range opts.Chains {
		g.Go(func() error {
			draws, stats, err := s.runChain(gctx, target, opts, c)
			if err != nil {
				return err
			}
			trace.Draws[c] = draws
			trace.Stats[c] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trace, nil
}

type chainState struct {
	rng      *rand.Rand
	x        []float64
	lp       float64
	kinds    []model.CoordKind
	step     []float64
	accepted []int
	proposed []int
}

func (s *Metropolis) runChain(ctx context.Context, target model.Target, opts schema.SampleOptions, chain int) ([][]float64, schema.ChainStats, error) {
	start := time.Now()
	log := s.Logger.With().Int("chain", chain).Logger()

	st, err := s.initChain(target, opts.Seed, chain)
	if err != nil {
		return nil, schema.ChainStats{Chain: chain}, err
	}

	interval := s.TuneInterval
	if interval <= 0 {
		interval = DefaultTuneInterval
	}
	draws := make([][]float64, 0, opts.Draws)
	drawAccepted, drawProposed := 0, 0

	for it := range opts.Tune + opts.Draws {
		if err := ctx.Err(); err != nil {
			return nil, schema.ChainStats{Chain: chain}, err
		}
		tuning := it < opts.Tune
		for j := range st.x {
			ok := s.update(target, st, j)
			if !tuning {
				drawProposed++
				if ok {
					drawAccepted++
				}
			}
		}
		if tuning && (it+1)%interval == 0 {
			for j := range st.step {
				if st.proposed[j] > 0 {
					st.step[j] *= stepFactor(float64(st.accepted[j]) / float64(st.proposed[j]))
				}
				st.accepted[j], st.proposed[j] = 0, 0
			}
			log.Trace().Int("iteration", it+1).Floats64("steps", st.step).Msg("tuned step sizes")
		}
		if !tuning {
			draws = append(draws, append([]float64(nil), st.x...))
		}
	}

	stats := schema.ChainStats{Chain: chain, DurationMs: time.Since(start).Milliseconds()}
	if drawProposed > 0 {
		stats.AcceptRate = float64(drawAccepted) / float64(drawProposed)
	}
	log.Debug().
		Int("draws", len(draws)).
		Float64("accept_rate", stats.AcceptRate).
		Int64("duration_ms", stats.DurationMs).
		Msg("chain finished")
	return draws, stats, nil
}

// initChain jitters the target's initial point until the density is finite.
func (s *Metropolis) initChain(target model.Target, seed uint64, chain int) (*chainState, error) {
	rng := rand.New(rand.NewPCG(seed, uint64(chain)))
	base := target.Initial(chain)
	kinds := target.Coordinates()
	if len(base) != target.Dim() || len(kinds) != target.Dim() {
		return nil, fmt.Errorf("target dimension %d does not match initial point %d or coordinates %d",
			target.Dim(), len(base), len(kinds))
	}

	st := &chainState{
		rng:      rng,
		kinds:    kinds,
		step:     make([]float64, len(base)),
		accepted: make([]int, len(base)),
		proposed: make([]int, len(base)),
	}
	for j, k := range kinds {
		st.step[j] = initialSteps[k]
	}

	for range maxInitAttempts {
		x := make([]float64, len(base))
		for j := range x {
			x[j] = base[j] + jitterScale*rng.NormFloat64()
		}
		if lp := target.LogDensity(x); !math.IsInf(lp, -1) && !math.IsNaN(lp) {
			st.x, st.lp = x, lp
			return st, nil
		}
	}
	lp := target.LogDensity(base)
	if math.IsInf(lp, -1) || math.IsNaN(lp) {
		return nil, fmt.Errorf("chain %d: log density is not finite at the initial point", chain)
	}
	st.x, st.lp = append([]float64(nil), base...), lp
	return st, nil
}

// update proposes a new value for coordinate j and reports whether it was accepted.
func (s *Metropolis) update(target model.Target, st *chainState, j int) bool {
	old := st.x[j]
	correction := 0.0
	local := true

	if st.kinds[j] == model.CoordChangepoint && st.rng.Float64() < s.PriorJumpProb {
		// Independence proposal from the logistic prior of a logit-uniform.
		u := st.rng.Float64()
		for u == 0 {
			u = st.rng.Float64()
		}
		st.x[j] = math.Log(u) - math.Log1p(-u)
		correction = logLogistic(old) - logLogistic(st.x[j])
		local = false
	} else {
		st.x[j] = old + st.step[j]*st.rng.NormFloat64()
	}

	lp := target.LogDensity(st.x)
	ok := !math.IsNaN(lp) && math.Log(st.rng.Float64()) < lp-st.lp+correction
	if ok {
		st.lp = lp
	} else {
		st.x[j] = old
	}
	if local {
		st.proposed[j]++
		if ok {
			st.accepted[j]++
		}
	}
	return ok
}

// stepFactor scales a step size from a batch acceptance rate.
func stepFactor(rate float64) float64 {
	switch {
	case rate < 0.001:
		return 0.1
	case rate < 0.05:
		return 0.5
	case rate < 0.2:
		return 0.9
	case rate > 0.95:
		return 10
	case rate > 0.75:
		return 2
	case rate > 0.5:
		return 1.1
	}
	return 1
}

// logLogistic is the log density of the standard logistic distribution.
func logLogistic(x float64) float64 {
	a := -math.Abs(x)
	return a - 2*math.Log1p(math.Exp(a))
}
