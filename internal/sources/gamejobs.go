package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/kvanticoder/jobscout/internal/identity"
	"github.com/kvanticoder/jobscout/internal/job"
)

const (
	// gameJobsWalkBound caps how many following nodes are inspected after a
	// job anchor while harvesting company/location/posted.
	gameJobsWalkBound = 220

	gameJobsWaitSelector = "a[href*='-at-']"
)

// GameJobs detail slugs contain an "-at-" marker between role and studio.
var gameJobsHrefRe = regexp.MustCompile(`(?i)^/[^?#]*-at-[^?#]+`)

// postedRe matches natural-language relative-time phrases on listing rows.
var postedRe = regexp.MustCompile(`(?i)\b\d+\s+(minute|hour|day|week|month|year)s?\s+ago\b`)

// anchor texts that are chrome, never company or location names
var gameJobsNoiseAnchors = map[string]bool{
	"save":     true,
	"filter":   true,
	"login":    true,
	"register": true,
}

type gameJobs struct {
	baseURL     string
	limit       int
	waitTimeout time.Duration
}

func newGameJobs(raw map[string]any) (Source, error) {
	var opts struct {
		BaseURL     string `mapstructure:"base-url"`
		Limit       int    `mapstructure:"limit"`
		WaitTimeout int    `mapstructure:"wait-timeout-seconds"`
	}
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://gamejobs.co/search"
	}
	if opts.Limit <= 0 {
		opts.Limit = 200
	}
	return &gameJobs{
		baseURL:     opts.BaseURL,
		limit:       opts.Limit,
		waitTimeout: time.Duration(opts.WaitTimeout) * time.Second,
	}, nil
}

func (g *gameJobs) Name() string { return "gamejobs" }

// Scrape renders the listing page in a browser session scoped to this call,
// then harvests job rows from whatever DOM was present when the wait ended.
func (g *gameJobs) Scrape(ctx context.Context, deps Deps, q Query) (*job.Postings, error) {
	render := deps.Render
	if render == nil {
		return nil, fmt.Errorf("gamejobs needs a browser renderer")
	}

	pageHTML, err := render(ctx, deps.Logger, g.baseURL, gameJobsWaitSelector, g.waitTimeout)
	if err != nil {
		return nil, err
	}

	return g.Parse(pageHTML, deps.Logger, q.Keyword)
}

// Parse extracts candidate postings from listing markup. Records with
// missing company/location/posted fields are kept partial rather than
// dropped; only records without a usable URL are discarded.
func (g *gameJobs) Parse(pageHTML string, logger *zap.Logger, keyword string) (*job.Postings, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, err
	}

	var keywordRe *regexp.Regexp
	if kw := strings.TrimSpace(keyword); kw != "" {
		keywordRe = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.ReplaceAll(kw, " ", "-")) + `\b`)
	}

	postings := &job.Postings{}
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !gameJobsHrefRe.MatchString(href) {
			return true
		}
		if keywordRe != nil && !keywordRe.MatchString(href) {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			logger.Debug("skipping job link with unparseable href", zap.String("href", href))
			return true
		}
		jobURL := base.ResolveReference(ref).String()

		id, err := identity.FromURL(jobURL)
		if err != nil {
			logger.Warn("dropping record without usable id",
				zap.String("url", jobURL),
				zap.Error(err),
			)
			return true
		}

		title := job.CleanText(a.Text())
		company, location, posted := harvestRowFields(a)

		postings.Append(&job.Posting{
			JobID:     id,
			Title:     title,
			Company:   company,
			Location:  location,
			URL:       jobURL,
			Source:    "gamejobs",
			Posted:    posted,
			ScrapedAt: time.Now().UTC(),
		})
		return postings.Len() < g.limit
	})

	return postings, nil
}

// harvestRowFields walks the nodes following a job anchor and infers
// company, location and a "posted N units ago" string from nearby text.
// The walk stops at the bound, at the next job anchor, or once all three
// fields are found. Inherently fragile to layout drift; partial results are
// fine.
func harvestRowFields(a *goquery.Selection) (company, location, posted string) {
	if len(a.Nodes) == 0 {
		return "", "", ""
	}

	start := a.Nodes[0]
	node := followingNode(start, start)
	for steps := 0; node != nil && steps < gameJobsWalkBound; steps++ {
		if node.Type == html.ElementNode && node.Data == "a" {
			if href := attrValue(node, "href"); href != "" && gameJobsHrefRe.MatchString(href) {
				break
			}
			text := job.CleanText(nodeText(node))
			if text != "" && !gameJobsNoiseAnchors[strings.ToLower(text)] {
				switch {
				case company == "":
					company = text
				case location == "":
					location = text
				}
			}
		} else if posted == "" && node.Type == html.TextNode {
			if m := postedRe.FindString(node.Data); m != "" {
				posted = job.CleanText(m)
			}
		}

		if company != "" && location != "" && posted != "" {
			break
		}
		node = followingNode(node, start)
	}
	return company, location, posted
}

// followingNode yields document-order successors of n, never re-entering the
// subtree rooted at start's ancestors' previous content.
func followingNode(n, start *html.Node) *html.Node {
	// Do not descend into the anchor's own subtree: its text is the title.
	if n != start && n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
			b.WriteString(" ")
		}
		for child := cur.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
