package ranking

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kvanticoder/jobscout/internal/job"
)

// contentSelectors are tried first; job boards commonly wrap the description
// in one of these containers.
var contentSelectors = []string{
	".description__text",
	".show-more-less-html__markup",
	"[class*='job-description']",
	"[class*='jobDescription']",
	"#job-details",
	"article",
	"main",
}

// noiseTags are stripped before the fallback extraction. Includes layout and
// chrome elements plus obsolete tags some older boards still emit.
var noiseTags = []string{
	"script", "style", "noscript", "header", "footer", "nav", "aside",
	"iframe", "form", "input", "button", "select", "option", "embed",
	"object", "canvas", "map", "area", "base", "link", "meta",
	"applet", "acronym", "basefont", "big", "center", "font", "strike",
	"menu", "dir", "wbr", "bdi", "bdo", "ruby", "rt", "rp",
}

// minContentChars guards against a selector matching an empty shell.
const minContentChars = 120

// ReadableText reduces a job detail page to the human-readable description.
// Known description containers are tried first; when none yields enough
// text, noise tags are removed and headings, paragraphs and list items are
// concatenated.
func ReadableText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, selector := range contentSelectors {
		text := job.CleanText(doc.Find(selector).First().Text())
		if len(text) >= minContentChars {
			return text
		}
	}

	doc.Find(strings.Join(noiseTags, ", ")).Remove()

	var sections []string
	doc.Find("h1, h2, h3, h4, p, li").Each(func(_ int, sel *goquery.Selection) {
		if text := job.CleanText(sel.Text()); text != "" {
			sections = append(sections, text)
		}
	})

	return strings.Join(sections, "\n")
}
