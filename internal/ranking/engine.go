// Package ranking implements the second pipeline pass: fetch each pending
// job's detail page, gate it lexically and by embedding similarity, then ask
// the model for a fit verdict. Every job produces a rated row, failed ones
// carry the failure flags instead of scores.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/ai"
	"github.com/kvanticoder/jobscout/internal/fetcher"
	"github.com/kvanticoder/jobscout/internal/filtering"
	"github.com/kvanticoder/jobscout/internal/job"
	"github.com/kvanticoder/jobscout/internal/resume"
	"github.com/kvanticoder/jobscout/internal/utils"
)

type Config struct {
	ResumePath string
	Include    []string
	Exclude    []string

	// StrongThreshold marks matches worth calling out in the log.
	// LLMThreshold gates the model call; weaker jobs are not worth the cost.
	StrongThreshold float64
	LLMThreshold    float64

	ChunkChars   int
	ChunkOverlap int

	// MaxLLMChunks bounds how many of the best-matching resume chunks are
	// rated individually before aggregation.
	MaxLLMChunks int

	RateLimitCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.StrongThreshold == 0 {
		c.StrongThreshold = 0.7
	}
	if c.LLMThreshold == 0 {
		c.LLMThreshold = 0.5
	}
	if c.ChunkChars <= 0 {
		c.ChunkChars = 1500
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = c.ChunkChars / 10
	}
	if c.MaxLLMChunks <= 0 {
		c.MaxLLMChunks = 5
	}
	if c.RateLimitCooldown <= 0 {
		c.RateLimitCooldown = 30 * time.Second
	}
	return c
}

// Deps aggregates the collaborators of the rating engine.
type Deps struct {
	Logger   *zap.Logger
	Fetcher  *fetcher.Client
	Embedder ai.Embedder
	Ranker   ai.Ranker
}

type Engine struct {
	cfg  Config
	deps Deps

	resumeChunks []resume.Chunk
	chunkVecs    [][]float64
}

func NewEngine(deps Deps, cfg Config) (*Engine, error) {
	if deps.Logger == nil || deps.Fetcher == nil || deps.Embedder == nil || deps.Ranker == nil {
		return nil, fmt.Errorf("ranking engine requires logger, fetcher, embedder and ranker")
	}
	return &Engine{cfg: cfg.withDefaults(), deps: deps}, nil
}

// Prepare loads the resume from the configured path and embeds its chunks.
// It must be called before RateAll; any failure here is fatal for the run
// and surfaces before a single job page is fetched.
func (e *Engine) Prepare(ctx context.Context) error {
	text, err := resume.ExtractText(e.cfg.ResumePath)
	if err != nil {
		return err
	}
	return e.PrepareText(ctx, text)
}

// PrepareText is Prepare for callers that already hold the resume text.
func (e *Engine) PrepareText(ctx context.Context, text string) error {
	chunks := resume.Split(text, e.cfg.ChunkChars, e.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("resume text produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vecs, err := e.deps.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed resume chunks: %w", err)
	}
	for i := range vecs {
		vecs[i] = NormalizeVec(vecs[i])
	}

	e.resumeChunks = chunks
	e.chunkVecs = vecs

	e.deps.Logger.Info("resume prepared",
		zap.String("path", e.cfg.ResumePath),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// RateAll processes the rows sequentially and returns one rated row per
// input. The batch keeps going past per-job failures; only context
// cancellation aborts it, returning the rows finished so far.
func (e *Engine) RateAll(ctx context.Context, rows []job.Row) ([]job.RatedRow, error) {
	if len(e.resumeChunks) == 0 {
		return nil, fmt.Errorf("engine is not prepared")
	}

	rated := make([]job.RatedRow, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return rated, err
		}
		rated = append(rated, e.rateOne(ctx, row))
	}
	return rated, nil
}

func (e *Engine) rateOne(ctx context.Context, row job.Row) job.RatedRow {
	logger := e.deps.Logger.With(zap.String("job_id", row.JobID), zap.String("url", row.JobURL))
	rated := job.NewRatedRow(row, e.cfg.ResumePath)

	resp, err := e.deps.Fetcher.Get(row.JobURL, nil)
	if err != nil {
		logger.Warn("job page fetch failed", zap.Error(err))
		rated.ScrapedFailed = "Yes"
		rated.ScrapedFailedError = err.Error()
		return rated
	}

	text := ReadableText(resp.Body)
	if text == "" {
		logger.Warn("job page had no readable content")
		rated.ScrapedFailed = "Yes"
		rated.ScrapedFailedError = "no readable content on page"
		return rated
	}

	if !filtering.Relevant(row.Title, text, e.cfg.Include, e.cfg.Exclude) {
		logger.Debug("job rejected by keyword gate")
		rated.NoMatchingJobTitle = "Yes"
		return rated
	}

	sims, err := e.similarities(ctx, text)
	if err != nil {
		logger.Warn("job embedding failed", zap.Error(err))
		if ai.IsRateLimited(err) {
			e.cooldown(ctx, logger)
		}
		rated.LLMJustification = "similarity unavailable: " + err.Error()
		return rated
	}

	best, bestIdx := 0.0, -1
	for i, sim := range sims {
		if bestIdx == -1 || sim > best {
			best, bestIdx = sim, i
		}
	}
	// The sheet carries the similarity on a 0 to 100 scale; anticorrelated
	// embeddings give a negative cosine, recorded as 0.
	rating := best * 100
	if rating < 0 {
		rating = 0
	}
	if rating > 100 {
		rating = 100
	}
	rated.RatingVsCV = rating

	switch {
	case best > e.cfg.StrongThreshold:
		logger.Info("strong resume match",
			zap.Float64("similarity", best),
			zap.Int("chunk", bestIdx),
		)
	case best <= e.cfg.LLMThreshold:
		logger.Debug("weak resume match, skipping model rating", zap.Float64("similarity", best))
		return rated
	}

	e.rateWithModel(ctx, logger, &rated, sims, text)
	return rated
}

// similarities embeds the job text and scores it against every resume chunk.
func (e *Engine) similarities(ctx context.Context, jobText string) ([]float64, error) {
	vecs, err := e.deps.Embedder.EmbedTexts(ctx, []string{jobText})
	if err != nil {
		return nil, err
	}
	jobVec := NormalizeVec(vecs[0])

	sims := make([]float64, len(e.chunkVecs))
	for i, chunk := range e.chunkVecs {
		sims[i] = Cosine(jobVec, chunk)
	}
	return sims, nil
}

// rateWithModel asks for a verdict on each of the best-matching resume
// chunks and aggregates: the final score is the maximum, missing skills are
// unioned, justifications concatenated.
func (e *Engine) rateWithModel(ctx context.Context, logger *zap.Logger, rated *job.RatedRow, sims []float64, jobText string) {
	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })
	if len(order) > e.cfg.MaxLLMChunks {
		order = order[:e.cfg.MaxLLMChunks]
	}

	var (
		bestScore      float64
		missing        = mapset.NewThreadUnsafeSet[string]()
		justifications []string
		verdicts       int
	)

	for _, idx := range order {
		assessment, err := e.deps.Ranker.Rate(ctx, e.resumeChunks[idx].Text, jobText)
		if err != nil {
			logger.Warn("model rating failed", zap.Int("chunk", idx), zap.Error(err))
			if ai.IsRateLimited(err) {
				e.cooldown(ctx, logger)
			}
			continue
		}

		verdicts++
		if assessment.Score > bestScore {
			bestScore = assessment.Score
		}
		for _, skill := range assessment.MissingSkills {
			missing.Add(skill)
		}
		if assessment.Justification != "" {
			justifications = append(justifications, assessment.Justification)
		}
	}

	if verdicts == 0 {
		logger.Warn("no usable model verdict for job")
		rated.LLMJustification = "no usable model verdict"
		return
	}

	skills := missing.ToSlice()
	sort.Strings(skills)

	rated.LLMRanking = strconv.FormatFloat(bestScore, 'f', 0, 64)
	rated.MissingSkills = skills
	rated.LLMJustification = strings.Join(justifications, " | ")
}

func (e *Engine) cooldown(ctx context.Context, logger *zap.Logger) {
	logger.Warn("rate limited, cooling down", zap.Duration("cooldown", e.cfg.RateLimitCooldown))
	if err := utils.WaitFor(ctx, e.cfg.RateLimitCooldown); err != nil {
		logger.Debug("cooldown interrupted", zap.Error(err))
	}
}
