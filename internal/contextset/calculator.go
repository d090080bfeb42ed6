// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package contextset

import "context"

// Calculator supplies platform context for a subject. Implementations are
// provided by platform adapters (world, server, custom attributes) and are
// folded into a single Set before each query.
type Calculator interface {
	// Accumulate adds the calculator's applicable pairs to acc.
	Accumulate(ctx context.Context, subject string, acc *Set)
}

// CalculatorFunc adapts a function to the Calculator interface.
type CalculatorFunc func(ctx context.Context, subject string, acc *Set)

// Accumulate implements Calculator.
func (f CalculatorFunc) Accumulate(ctx context.Context, subject string, acc *Set) {
	f(ctx, subject, acc)
}

// StaticCalculator always contributes the same fixed pairs, typically the
// server identifier from configuration.
type StaticCalculator struct {
	pairs []Pair
}

// NewStaticCalculator builds a StaticCalculator from alternating key/value
// pairs.
func NewStaticCalculator(pairs ...string) *StaticCalculator {
	s := Of(pairs...)
	return &StaticCalculator{pairs: s.Immutable().Pairs()}
}

// Accumulate implements Calculator.
func (c *StaticCalculator) Accumulate(_ context.Context, _ string, acc *Set) {
	for _, p := range c.pairs {
		acc.Add(p.Key, p.Value)
	}
}

// Accumulator folds an ordered chain of calculators into query contexts.
type Accumulator struct {
	calculators []Calculator
}

// NewAccumulator returns an Accumulator over the given calculators, applied
// in order.
func NewAccumulator(calculators ...Calculator) *Accumulator {
	return &Accumulator{calculators: calculators}
}

// Register appends a calculator to the chain.
func (a *Accumulator) Register(c Calculator) {
	a.calculators = append(a.calculators, c)
}

// ContextFor runs every calculator for the subject and returns the frozen
// combined context.
func (a *Accumulator) ContextFor(ctx context.Context, subject string) ImmutableSet {
	acc := New()
	for _, c := range a.calculators {
		c.Accumulate(ctx, subject, acc)
	}
	return acc.Immutable()
}

// WorldCalculator contributes the subject's current world, following any
// configured world rewrites. Rewrites are chased until a fixed point; the
// accumulator membership check guards against rewrite loops.
type WorldCalculator struct {
	lookup   func(ctx context.Context, subject string) string
	rewrites map[string]string
}

// NewWorldCalculator builds a WorldCalculator. lookup returns the subject's
// current world name, or "" when unknown. rewrites may be nil.
func NewWorldCalculator(lookup func(ctx context.Context, subject string) string, rewrites map[string]string) *WorldCalculator {
	return &WorldCalculator{lookup: lookup, rewrites: rewrites}
}

// Accumulate implements Calculator.
func (c *WorldCalculator) Accumulate(ctx context.Context, subject string, acc *Set) {
	world := normalizeKey(c.lookup(ctx, subject))
	for world != "" && !acc.Has(WorldKey, world) {
		acc.Add(WorldKey, world)
		next, ok := c.rewrites[world]
		if !ok {
			break
		}
		world = normalizeKey(next)
	}
}
