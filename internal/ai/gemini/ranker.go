package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/ai"
	"github.com/kvanticoder/jobscout/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateContentWithCache(ctx context.Context, prompt, cacheName string) (string, error)
}

// Ranker scores a job description against a resume via a Gemini prompt.
type Ranker struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	cacheName string
}

//go:embed prompt.md
var promptTemplate string

const cachedResumeNote = "(provided in the cached context above)"

const defaultMaxLogLength = 200

func NewRanker(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Ranker {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Ranker{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// UseCache makes subsequent Rate calls reference an existing Gemini cached
// content resource instead of inlining the resume into every prompt.
func (r *Ranker) UseCache(name string) {
	r.cacheName = strings.TrimSpace(name)
}

func (r *Ranker) Rate(ctx context.Context, resumeText, jobText string) (*ai.JobAssessment, error) {
	if strings.TrimSpace(jobText) == "" {
		return nil, fmt.Errorf("job text is required")
	}

	resumeSection := resumeText
	if r.cacheName != "" {
		resumeSection = cachedResumeNote
	} else if strings.TrimSpace(resumeSection) == "" {
		return nil, fmt.Errorf("resume text is required")
	}

	prompt := buildPrompt(resumeSection, jobText)

	r.logger.Debug("gemini rating request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
		zap.Bool("cached_resume", r.cacheName != ""),
	)

	var (
		raw string
		err error
	)
	if r.cacheName != "" {
		raw, err = r.generator.GenerateContentWithCache(ctx, prompt, r.cacheName)
	} else {
		raw, err = r.generator.GenerateContent(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini rating response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		return nil, err
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(resumeText, jobText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME}}\n\nJob:\n{{JOB}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{RESUME}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{JOB}}", jobText)
	return prompt
}

// verdictKeys is the full key set a reply object must carry to count as the
// model's verdict. Fragments quoting just a score do not qualify.
var verdictKeys = [...]string{"score", "missing_skills", "justification"}

// parseAssessment digs the verdict object out of a reply that may wrap it in
// prose or markdown fences. Every balanced top-level JSON object found in the
// text is tried in order; the first one carrying the full verdict key set
// wins, partial objects fall through to later candidates.
func parseAssessment(raw string) (*ai.JobAssessment, error) {
	for _, candidate := range balancedObjects(raw) {
		var data map[string]any
		if err := json.Unmarshal([]byte(candidate), &data); err != nil {
			continue
		}
		if !hasVerdictKeys(data) {
			continue
		}

		score := coerceFloat(data["score"])
		if math.IsNaN(score) {
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}

		return &ai.JobAssessment{
			Score:         score,
			MissingSkills: coerceStringSlice(data["missing_skills"]),
			Justification: coerceString(data["justification"]),
		}, nil
	}

	return nil, fmt.Errorf("no usable json object in model reply")
}

func hasVerdictKeys(data map[string]any) bool {
	for _, key := range verdictKeys {
		if _, ok := data[key]; !ok {
			return false
		}
	}
	return true
}

// balancedObjects returns each top-level {...} span in s, honoring strings
// and escapes so braces inside quoted values do not break the balance.
func balancedObjects(s string) []string {
	var (
		objects  []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString || depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				objects = append(objects, s[start:i+1])
			}
		}
	}

	return objects
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if single := coerceString(v); single != "" && v != nil {
			return []string{single}
		}
		return nil
	}

	var out []string
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
