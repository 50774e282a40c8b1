package survey

import (
	"context"
	"math"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/rng"
)

// Generator produces the observing conditions for each blend of a batch.
type Generator interface {
	// Next returns one ConditionSet per blend of the next batch.
	Next(ctx context.Context) ([]ConditionSet, error)
}

// ConstantGenerator hands out the same set for every blend.
type ConstantGenerator struct {
	Set       ConditionSet
	BatchSize int
}

// Next implements [Generator].
func (g *ConstantGenerator) Next(ctx context.Context) ([]ConditionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ConditionSet, g.BatchSize)
	for i := range out {
		out[i] = g.Set
	}
	return out, nil
}

// minSeeingFactor keeps jittered seeing strictly positive.
const minSeeingFactor = 0.25

// JitterGenerator draws each blend's seeing as the survey median scaled by
// 1 + Jitter·N(0, 1), independently per band. Batch k uses a random stream
// derived from (Seed, k).
type JitterGenerator struct {
	base      ConditionSet
	batchSize int
	jitter    float64
	seed      uint64
	next      int64
}

// NewJitterGenerator returns a generator for bands of s.
func NewJitterGenerator(s Survey, bands []string, batchSize int, jitter float64, seed uint64) (*JitterGenerator, error) {
	base, err := s.Conditions(bands)
	if err != nil {
		return nil, err
	}
	if jitter < 0 {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidConfig, "seeing jitter must be >= 0, got %g", jitter)
	}
	return &JitterGenerator{base: base, batchSize: batchSize, jitter: jitter, seed: seed}, nil
}

// Seek positions the generator so the next call to Next produces batch k.
func (g *JitterGenerator) Seek(k int64) { g.next = k }

// Next implements [Generator].
func (g *JitterGenerator) Next(ctx context.Context) ([]ConditionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := rng.New(g.seed, rng.StreamConditions, uint64(g.next))
	out := make([]ConditionSet, g.batchSize)
	for i := range out {
		set := make(ConditionSet, len(g.base))
		for b, c := range g.base {
			obs := c.(*Observation)
			f := math.Max(1+g.jitter*r.NormFloat64(), minSeeingFactor)
			set[b] = obs.WithSeeing(obs.SeeingFWHM() * f)
		}
		out[i] = set
	}
	g.next++
	return out, nil
}
