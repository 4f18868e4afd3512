package ai

import (
	"context"
	"strings"
)

// JobAssessment is the model's verdict for a single resume/job pairing.
// Score is on a 0-100 scale.
type JobAssessment struct {
	Score         float64
	MissingSkills []string
	Justification string
	Raw           string
}

// Ranker produces a fit assessment for a job description against the
// candidate's resume text.
type Ranker interface {
	Rate(ctx context.Context, resumeText, jobText string) (*JobAssessment, error)
}

// Embedder turns texts into dense vectors for similarity scoring.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// IsRateLimited reports whether the error looks like an API quota rejection.
// The genai client surfaces these as wrapped http errors, so detection is by
// status code and status text rather than a sentinel.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "rate limit")
}
