package filtering

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kvanticoder/jobscout/internal/job"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"lowercases", "3D Animator", "3d animator"},
		{"strips punctuation", "Rigger (Senior) & Games!", "rigger senior games"},
		{"keeps hyphens", "entry-level", "entry-level"},
		{"collapses whitespace", "  gameplay \n\t animator ", "gameplay animator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, Normalize(tt.input))
		})
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	include := []string{"animator"}
	exclude := []string{"intern"}

	tests := []struct {
		name   string
		title  string
		body   string
		expect bool
	}{
		{"include in body", "3D Animator", "... rigging pipeline ...", true},
		{"include in title only", "Gameplay Animator", "we build games", true},
		{"no include match", "Marketing Lead", "campaigns and ads", false},
		{"exclude wins over include in title", "Animator Intern", "...", false},
		{"exclude wins over include in body", "Animator", "this internship is unpaid", false},
		{"case and punctuation insensitive", "ANIMATOR!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, Relevant(tt.title, tt.body, include, exclude))
		})
	}
}

func TestRelevanceFilterApply(t *testing.T) {
	t.Parallel()

	postings := &job.Postings{Items: []*job.Posting{
		{JobID: "a", Title: "3D Animator"},
		{JobID: "b", Title: "Marketing Intern"},
		{JobID: "c", Title: "Technical Animator", Snippet: "rigging, tools"},
	}}

	filter := NewRelevance([]string{"animator"}, []string{"intern"})
	next, step, err := filter.Apply(Deps{}, postings)
	assert.NoError(t, err)

	assert.Equal(t, 3, step.Initial)
	assert.Equal(t, 1, step.Dropped)
	assert.Equal(t, 2, step.Left)
	assert.Equal(t, []string{"a", "c"}, next.IDs())
}

func TestRelevanceFilterNoIncludeKeywordsPassesAll(t *testing.T) {
	t.Parallel()

	postings := &job.Postings{Items: []*job.Posting{{JobID: "a", Title: "Anything"}}}
	next, step, err := NewRelevance(nil, nil).Apply(Deps{}, postings)
	assert.NoError(t, err)
	assert.Equal(t, 1, next.Len())
	assert.Zero(t, step.Dropped)
}
