package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/identity"
	"github.com/kvanticoder/jobscout/internal/job"
)

type hitmarker struct {
	baseURL string
	// site is the scheme://host of baseURL; posting links live under it.
	site  string
	pages int
}

type hitmarkerJob struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Company  struct {
		Name string `json:"name"`
	} `json:"company"`
}

type hitmarkerResponse struct {
	Data []hitmarkerJob `json:"data"`
}

func newHitmarker(raw map[string]any) (Source, error) {
	var opts struct {
		BaseURL string `mapstructure:"base-url"`
		Pages   int    `mapstructure:"pages"`
	}
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://hitmarker.net/api/jobs"
	}
	if opts.Pages <= 0 {
		opts.Pages = 3
	}

	parsed, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("hitmarker base-url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("hitmarker base-url %q must be absolute", opts.BaseURL)
	}

	return &hitmarker{
		baseURL: opts.BaseURL,
		site:    parsed.Scheme + "://" + parsed.Host,
		pages:   opts.Pages,
	}, nil
}

func (h *hitmarker) Name() string { return "hitmarker" }

// Scrape pages through the JSON jobs API until a page comes back empty or
// blocked.
func (h *hitmarker) Scrape(_ context.Context, deps Deps, q Query) (*job.Postings, error) {
	postings := &job.Postings{}

	for page := 1; page <= h.pages; page++ {
		params := url.Values{}
		params.Set("search", q.Keyword)
		params.Set("page", strconv.Itoa(page))

		var payload hitmarkerResponse
		if err := deps.Fetcher.GetJSON(h.baseURL, params, &payload); err != nil {
			deps.Logger.Warn("hitmarker request blocked or failed",
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		if len(payload.Data) == 0 {
			deps.Logger.Info("no more hitmarker jobs found", zap.Int("page", page))
			break
		}

		deps.Logger.Debug("scraped hitmarker page",
			zap.Int("page", page),
			zap.Int("jobs", len(payload.Data)),
		)

		for _, item := range payload.Data {
			if item.Slug == "" {
				deps.Logger.Warn("dropping hitmarker record without slug", zap.String("title", item.Title))
				continue
			}
			jobURL := fmt.Sprintf("%s/jobs/%s", h.site, item.Slug)
			id, err := identity.FromURL(jobURL)
			if err != nil {
				deps.Logger.Warn("dropping record without usable id",
					zap.String("slug", item.Slug),
					zap.Error(err),
				)
				continue
			}

			postings.Append(&job.Posting{
				JobID:     id,
				Title:     job.CleanText(item.Title),
				Company:   job.CleanText(item.Company.Name),
				Location:  job.CleanText(item.Location),
				URL:       jobURL,
				Source:    "hitmarker",
				ScrapedAt: time.Now().UTC(),
			})
		}
	}

	return postings, nil
}
