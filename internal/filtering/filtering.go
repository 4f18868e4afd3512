// Package filtering runs the scan-side filter chain over freshly parsed
// candidates: dedup against the seen-id set first, then the lexical
// relevance gate.
package filtering

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/identity"
	"github.com/kvanticoder/jobscout/internal/job"
)

// Filter represents a single filtering step applied to postings.
type Filter interface {
	Name() string
	Apply(deps Deps, p *job.Postings) (*job.Postings, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
	Seen   *identity.SeenSet
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Run executes the supplied filters sequentially, returning the surviving
// postings.
func Run(deps Deps, steps []Filter, p *job.Postings) (*job.Postings, error) {
	for _, step := range steps {
		next, info, err := step.Apply(deps, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		p = next
	}

	return p, nil
}
