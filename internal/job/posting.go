package job

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// SheetDateLayout is the date format used for all output rows.
const SheetDateLayout = "01/02/2006"

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs into single spaces and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Posting is a single job candidate produced by a listing parser. It is
// immutable after parse time; identity is purely a function of URL.
type Posting struct {
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	Company   string    `json:"company,omitempty"`
	Location  string    `json:"location,omitempty"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Snippet   string    `json:"snippet,omitempty"`
	Posted    string    `json:"posted,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type Postings struct {
	Items []*Posting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) Append(items ...*Posting) {
	p.Items = append(p.Items, items...)
}

func (p *Postings) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.JobID)
	}
	return ids
}

func (p *Postings) FindByID(id string) *Posting {
	for _, item := range p.Items {
		if item.JobID == id {
			return item
		}
	}
	return nil
}

// Filter returns a new collection holding the postings accepted by keep and
// the ids of the dropped ones. The receiver is not mutated.
func (p *Postings) Filter(keep func(*Posting) bool) (*Postings, []string) {
	next := &Postings{Items: make([]*Posting, 0, len(p.Items))}
	var dropped []string
	for _, item := range p.Items {
		if keep(item) {
			next.Items = append(next.Items, item)
			continue
		}
		dropped = append(dropped, item.JobID)
	}
	return next, dropped
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// Row is the pre-rank output record appended after a scan pass.
type Row struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	JobURL      string `json:"job_url"`
	Source      string `json:"source"`
	DateScraped string `json:"date_scraped"`
}

// ToRow converts a posting into its sheet representation.
func (p *Posting) ToRow() Row {
	scraped := p.ScrapedAt
	if scraped.IsZero() {
		scraped = time.Now()
	}
	return Row{
		JobID:       p.JobID,
		Title:       p.Title,
		Company:     p.Company,
		Location:    p.Location,
		JobURL:      p.URL,
		Source:      p.Source,
		DateScraped: scraped.Format(SheetDateLayout),
	}
}

// Fields returns the ordered field tuple for the row-append sink.
func (r Row) Fields() []string {
	return []string{r.JobID, r.Title, r.Company, r.Location, r.JobURL, r.Source, r.DateScraped}
}

// RowFromFields is the inverse of Fields.
func RowFromFields(fields []string) (Row, error) {
	if len(fields) != 7 {
		return Row{}, fmt.Errorf("scanned row needs 7 fields, got %d", len(fields))
	}
	return Row{
		JobID:       fields[0],
		Title:       fields[1],
		Company:     fields[2],
		Location:    fields[3],
		JobURL:      fields[4],
		Source:      fields[5],
		DateScraped: fields[6],
	}, nil
}
