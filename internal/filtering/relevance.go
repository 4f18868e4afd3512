package filtering

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/job"
)

var nonLexicalRe = regexp.MustCompile(`[^a-z0-9\s\-]`)

var spaceRunRe = regexp.MustCompile(`\s+`)

// Normalize lowercases the text, strips everything except alphanumerics,
// whitespace and hyphens, and collapses whitespace runs.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonLexicalRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " "))
}

// Relevant reports whether the title/body pair passes the lexical gate: at
// least one include keyword appears as a substring of the normalized body or
// title, and no exclude keyword appears in either. Exclude wins when both
// match. Plain substring matching, order-independent and idempotent.
func Relevant(title, body string, include, exclude []string) bool {
	normTitle := Normalize(title)
	normBody := Normalize(body)

	matched := false
	for _, kw := range include {
		kw = Normalize(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(normBody, kw) || strings.Contains(normTitle, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, kw := range exclude {
		kw = Normalize(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(normBody, kw) || strings.Contains(normTitle, kw) {
			return false
		}
	}

	return true
}

type relevanceFilter struct {
	include []string
	exclude []string
}

// NewRelevance creates the lexical include/exclude step. The keyword sets
// are externally supplied vocabularies; the filter itself is agnostic to
// their contents. At scan time only the title and snippet are available, so
// they stand in for the body text.
func NewRelevance(include, exclude []string) Filter {
	return &relevanceFilter{include: include, exclude: exclude}
}

func (f *relevanceFilter) Name() string { return "relevance" }

func (f *relevanceFilter) Apply(deps Deps, p *job.Postings) (*job.Postings, Step, error) {
	initial := p.Len()
	if len(f.include) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	next, dropped := p.Filter(func(posting *job.Posting) bool {
		return Relevant(posting.Title, posting.Snippet, f.include, f.exclude)
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding postings by keyword rules",
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", next.Len()),
		)
	}

	return next, Step{Initial: initial, Dropped: len(dropped), Left: next.Len()}, nil
}
