package job

import (
	"fmt"
	"strings"
	"time"
)

// RatedRow is the post-rank output record. Failed items are still emitted
// with the failure flags set so they can be triaged manually.
type RatedRow struct {
	JobID              string   `json:"job_id"`
	RatingVsCV         float64  `json:"rating_vs_cv"`
	MissingSkills      []string `json:"missing_skills"`
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Location           string   `json:"location"`
	Link               string   `json:"link"`
	DateProcessed      string   `json:"date_processed"`
	CVUsed             string   `json:"cv_used"`
	ScrapedFailed      string   `json:"scraped_failed"`
	ScrapedFailedError string   `json:"scraped_failed_error_message"`
	NoMatchingJobTitle string   `json:"no_matching_job_title"`
	LLMRanking         string   `json:"llm_ranking"`
	LLMJustification   string   `json:"llm_justification"`
}

// NewRatedRow builds a rated row skeleton for the given scanned row with the
// failure flags cleared. The ranking stages fill in the rest.
func NewRatedRow(r Row, cvPath string) RatedRow {
	return RatedRow{
		JobID:         r.JobID,
		Title:         r.Title,
		Company:       r.Company,
		Location:      r.Location,
		Link:          r.JobURL,
		DateProcessed: time.Now().Format(SheetDateLayout),
		CVUsed:        cvPath,
		ScrapedFailed: "No",
	}
}

// Fields returns the ordered field tuple for the row-append sink.
func (r RatedRow) Fields() []string {
	return []string{
		r.JobID,
		fmt.Sprintf("%.0f", r.RatingVsCV),
		strings.Join(r.MissingSkills, "; "),
		r.Title,
		r.Company,
		r.Location,
		r.Link,
		r.DateProcessed,
		r.CVUsed,
		r.ScrapedFailed,
		r.ScrapedFailedError,
		r.NoMatchingJobTitle,
		r.LLMRanking,
		r.LLMJustification,
	}
}
