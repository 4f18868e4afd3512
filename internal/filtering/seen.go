package filtering

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/job"
)

type seenFilter struct{}

// NewSeen creates the dedup step. It drops postings whose id is already in
// the run's seen set and registers the ids of the survivors, so a job
// accepted earlier in the same run cannot be emitted twice either.
func NewSeen() Filter {
	return &seenFilter{}
}

func (f *seenFilter) Name() string { return "seen" }

func (f *seenFilter) Apply(deps Deps, p *job.Postings) (*job.Postings, Step, error) {
	if deps.Seen == nil {
		return p, Step{}, fmt.Errorf("seen set is required")
	}

	initial := p.Len()
	next, dropped := p.Filter(func(posting *job.Posting) bool {
		// Add reports false for known ids, making this a single check-and-mark.
		return deps.Seen.Add(posting.JobID)
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding postings already seen",
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", next.Len()),
		)
	}

	return next, Step{Initial: initial, Dropped: len(dropped), Left: next.Len()}, nil
}
