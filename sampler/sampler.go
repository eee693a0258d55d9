// Package sampler is the seam between cmd and engine's Gibbs sampler: a
// small interface plus a single implementation, kept deliberately thin
// the way the teacher's own sampler package was - sampling is explicitly
// a secondary inference path here (engine's cluster-graph algorithms are
// the primary ones), not a tuned, richly-instrumented subsystem.
package sampler

import (
	"github.com/merlin-pgm/merlin/buffer"
	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/engine"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// Sampler runs an approximate inference pass and reports the result plus
// a short window of recent sample-to-sample movement, for callers that
// want a lightweight progress signal without a full convergence study.
type Sampler interface {
	Run(m *model.GraphicalModel, ev model.EvidenceVector) (*model.Result, error)
	History() *buffer.CircularFloat
}

// GibbsSampler wraps engine.RunGibbs, tracking the largest marginal
// probability over all variables across calls as a rough signal
// of whether consecutive runs are settling down.
type GibbsSampler struct {
	opts    *config.Options
	gen     *rand.Generator
	history *buffer.CircularFloat
}

// NewGibbsSampler builds a Sampler that delegates to engine.RunGibbs.
func NewGibbsSampler(opts *config.Options, gen *rand.Generator) *GibbsSampler {
	return &GibbsSampler{opts: opts, gen: gen, history: buffer.NewCircularFloat(20)}
}

// Run executes one full Gibbs pass and records its peak marginal value.
func (s *GibbsSampler) Run(m *model.GraphicalModel, ev model.EvidenceVector) (*model.Result, error) {
	r, err := engine.RunGibbs(m, ev, s.opts, s.gen)
	if err != nil {
		return nil, err
	}
	s.history.Add(peakMarginal(r.Marginals))
	return r, nil
}

// History returns the recent peak-marginal trace.
func (s *GibbsSampler) History() *buffer.CircularFloat {
	return s.history
}

func peakMarginal(marg model.Marginals) float64 {
	best := 0.0
	for _, dist := range marg {
		for _, p := range dist {
			if p > best {
				best = p
			}
		}
	}
	return best
}
