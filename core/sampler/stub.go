package sampler

import (
	"context"
	"sync/atomic"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/schema"
)

// Stub is a deterministic sampler. Every draw of chain c is Point(c, d), or
// the target's initial point when Point is nil. It never evaluates the density.
type Stub struct {
	Point func(chain, draw int) []float64
	Err   error

	calls atomic.Int32
}

// Sample implements model.Sampler.
func (s *Stub) Sample(ctx context.Context, target model.Target, opts schema.SampleOptions) (*model.Trace, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	trace := &model.Trace{
		Draws: make([][][]float64, opts.Chains),
		Stats: make([]schema.ChainStats, opts.Chains),
	}
	for c := range opts.Chains {
		trace.Stats[c] = schema.ChainStats{Chain: c, AcceptRate: 1}
		trace.Draws[c] = make([][]float64, opts.Draws)
		for d := range opts.Draws {
			if s.Point != nil {
				trace.Draws[c][d] = s.Point(c, d)
			} else {
				trace.Draws[c][d] = target.Initial(c)
			}
		}
	}
	return trace, nil
}

// Calls returns how many times Sample was invoked.
func (s *Stub) Calls() int {
	return int(s.calls.Load())
}
