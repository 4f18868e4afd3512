package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	reply       string
	err         error
	lastPrompt  string
	cachedCalls int
	plainCalls  int
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.plainCalls++
	s.lastPrompt = prompt
	return s.reply, s.err
}

func (s *stubGenerator) GenerateContentWithCache(_ context.Context, prompt, _ string) (string, error) {
	s.cachedCalls++
	s.lastPrompt = prompt
	return s.reply, s.err
}

func TestRateParsesCleanReply(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: `{"score": 82, "missing_skills": ["Houdini"], "justification": "Strong rigging background."}`}
	ranker := NewRanker(stub, zap.NewNop(), 0)

	got, err := ranker.Rate(context.Background(), "resume text", "job text")
	require.NoError(t, err)

	assert.Equal(t, 82.0, got.Score)
	assert.Equal(t, []string{"Houdini"}, got.MissingSkills)
	assert.Equal(t, "Strong rigging background.", got.Justification)
	assert.Equal(t, stub.reply, got.Raw)
	assert.Contains(t, stub.lastPrompt, "resume text")
	assert.Contains(t, stub.lastPrompt, "job text")
}

func TestRateParsesReplyWrappedInProse(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: "Sure! Here is my assessment:\n```json\n" +
		`{"score": "65", "missing_skills": [], "justification": "Partial match {with caveats}."}` +
		"\n```\nHope that helps!"}
	ranker := NewRanker(stub, zap.NewNop(), 0)

	got, err := ranker.Rate(context.Background(), "resume", "job")
	require.NoError(t, err)

	assert.Equal(t, 65.0, got.Score)
	assert.Empty(t, got.MissingSkills)
	assert.Equal(t, "Partial match {with caveats}.", got.Justification)
}

func TestRateSkipsObjectsWithoutScore(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: `The posting mentions {"company": "Acme"} but my verdict is {"score": 40, "missing_skills": ["Unreal"], "justification": "Gap."}`}
	ranker := NewRanker(stub, zap.NewNop(), 0)

	got, err := ranker.Rate(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Score)
}

func TestRateSkipsPartialObjectBeforeVerdict(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: `A quick note {"score": 10} before the verdict: ` +
		`{"score": 80, "missing_skills": ["rigging"], "justification": "Close fit."}`}
	ranker := NewRanker(stub, zap.NewNop(), 0)

	got, err := ranker.Rate(context.Background(), "resume", "job")
	require.NoError(t, err)

	assert.Equal(t, 80.0, got.Score)
	assert.Equal(t, []string{"rigging"}, got.MissingSkills)
	assert.Equal(t, "Close fit.", got.Justification)
}

func TestRateRejectsPartialOnlyReply(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: `{"score": 10}`}
	_, err := NewRanker(stub, zap.NewNop(), 0).Rate(context.Background(), "resume", "job")
	assert.Error(t, err)
}

func TestRateClampsScore(t *testing.T) {
	t.Parallel()

	for reply, want := range map[string]float64{
		`{"score": 140, "missing_skills": [], "justification": "x"}`: 100,
		`{"score": -3, "missing_skills": [], "justification": "x"}`:  0,
	} {
		stub := &stubGenerator{reply: reply}
		got, err := NewRanker(stub, zap.NewNop(), 0).Rate(context.Background(), "resume", "job")
		require.NoError(t, err)
		assert.Equal(t, want, got.Score)
	}
}

func TestRateErrorsWhenNoJSONFound(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: "I cannot produce a rating for this posting."}
	_, err := NewRanker(stub, zap.NewNop(), 0).Rate(context.Background(), "resume", "job")
	assert.Error(t, err)
}

func TestRatePropagatesGeneratorError(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{err: errors.New("boom")}
	_, err := NewRanker(stub, zap.NewNop(), 0).Rate(context.Background(), "resume", "job")
	assert.ErrorContains(t, err, "boom")
}

func TestRateUsesCachedResume(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{reply: `{"score": 10, "missing_skills": [], "justification": "x"}`}
	ranker := NewRanker(stub, zap.NewNop(), 0)
	ranker.UseCache("cachedContents/abc")

	_, err := ranker.Rate(context.Background(), "", "job")
	require.NoError(t, err)

	assert.Equal(t, 1, stub.cachedCalls)
	assert.Zero(t, stub.plainCalls)
	assert.NotContains(t, stub.lastPrompt, "{{RESUME}}")
	assert.Contains(t, stub.lastPrompt, cachedResumeNote)
}

func TestBalancedObjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single object",
			input: `{"a": 1}`,
			want:  []string{`{"a": 1}`},
		},
		{
			name:  "nested braces stay in one object",
			input: `before {"a": {"b": 2}} after`,
			want:  []string{`{"a": {"b": 2}}`},
		},
		{
			name:  "braces inside strings are ignored",
			input: `{"a": "close } brace"}`,
			want:  []string{`{"a": "close } brace"}`},
		},
		{
			name:  "escaped quote does not end the string",
			input: `{"a": "quote \" and } brace"}`,
			want:  []string{`{"a": "quote \" and } brace"}`},
		},
		{
			name:  "multiple top level objects",
			input: `{"a": 1} text {"b": 2}`,
			want:  []string{`{"a": 1}`, `{"b": 2}`},
		},
		{
			name:  "unterminated object yields nothing",
			input: `{"a": 1`,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, balancedObjects(tt.input))
		})
	}
}
