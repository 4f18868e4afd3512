package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/identity"
	"github.com/kvanticoder/jobscout/internal/job"
)

const linkedInPageSize = 25

type linkedIn struct {
	baseURL  string
	pages    int
	workType string
	postDate string
}

func newLinkedIn(raw map[string]any) (Source, error) {
	var opts struct {
		BaseURL  string `mapstructure:"base-url"`
		Pages    int    `mapstructure:"pages"`
		WorkType string `mapstructure:"work-type"`
		PostDate string `mapstructure:"post-date"`
	}
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	}
	if opts.Pages <= 0 {
		opts.Pages = 2
	}
	return &linkedIn{
		baseURL:  opts.BaseURL,
		pages:    opts.Pages,
		workType: opts.WorkType,
		postDate: opts.PostDate,
	}, nil
}

func (l *linkedIn) Name() string { return "linkedin" }

// Scrape pages through the guest search endpoint. A blocked page is logged
// and skipped; an empty page ends the pagination early.
func (l *linkedIn) Scrape(_ context.Context, deps Deps, q Query) (*job.Postings, error) {
	postings := &job.Postings{}

	for page := 0; page < l.pages; page++ {
		params := url.Values{}
		params.Set("keywords", q.Keyword)
		params.Set("location", q.Location)
		params.Set("start", strconv.Itoa(page*linkedInPageSize))
		if l.workType != "" {
			params.Set("f_WT", l.workType)
		}
		if l.postDate != "" {
			params.Set("f_TPR", l.postDate)
		}

		resp, err := deps.Fetcher.Get(l.baseURL, params)
		if err != nil {
			deps.Logger.Warn("linkedin page blocked or failed",
				zap.Int("page", page+1),
				zap.Error(err),
			)
			continue
		}

		parsed, err := l.Parse(resp.Body, deps.Logger)
		if err != nil {
			deps.Logger.Warn("linkedin page unparseable", zap.Int("page", page+1), zap.Error(err))
			continue
		}
		if parsed.Len() == 0 {
			deps.Logger.Info("no more linkedin jobs returned, stopping early", zap.Int("page", page+1))
			break
		}

		deps.Logger.Debug("scraped linkedin page",
			zap.Int("page", page+1),
			zap.Int("jobs", parsed.Len()),
		)
		postings.Append(parsed.Items...)
	}

	return postings, nil
}

// Parse reads job cards out of a guest search fragment. Cards missing the
// title, company or link element are skipped.
func (l *linkedIn) Parse(fragment string, logger *zap.Logger) (*job.Postings, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	postings := &job.Postings{}
	doc.Find("li").Each(func(_ int, card *goquery.Selection) {
		titleEl := card.Find("h3").First()
		companyEl := card.Find("h4").First()
		linkEl := card.Find("a[href]").First()
		if titleEl.Length() == 0 || companyEl.Length() == 0 || linkEl.Length() == 0 {
			return
		}

		href, _ := linkEl.Attr("href")
		// Tracking queries make the same job look unique.
		jobURL := strings.SplitN(strings.TrimSpace(href), "?", 2)[0]

		id, err := identity.FromURL(jobURL)
		if err != nil {
			logger.Warn("dropping record without usable id",
				zap.String("url", jobURL),
				zap.Error(err),
			)
			return
		}

		postings.Append(&job.Posting{
			JobID:     id,
			Title:     job.CleanText(titleEl.Text()),
			Company:   job.CleanText(companyEl.Text()),
			Location:  job.CleanText(card.Find(".job-search-card__location").First().Text()),
			URL:       jobURL,
			Source:    "linkedin",
			Snippet:   job.CleanText(card.Find("p").First().Text()),
			ScrapedAt: time.Now().UTC(),
		})
	})

	return postings, nil
}
