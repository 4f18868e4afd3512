// Package store persists pipeline output between the scan and rank passes.
// The core only depends on the Store interface; the file-backed
// implementation keeps the CLI self-contained without owning a datastore.
package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kvanticoder/jobscout/internal/identity"
	"github.com/kvanticoder/jobscout/internal/job"
)

const (
	TableScanned = "scanned_jobs"
	TableRated   = "rated_jobs"
)

// Store is the row backend the pipeline writes to and reads from.
type Store interface {
	// KnownIDs returns every job id ever recorded, across all tables. The
	// result seeds the run's seen set.
	KnownIDs(ctx context.Context) (*identity.SeenSet, error)
	// Append adds rows to the named table. Rows are ordered field tuples.
	Append(ctx context.Context, table string, rows [][]string) error
	// Pending returns the scanned rows that have no rated counterpart yet.
	Pending(ctx context.Context) ([]job.Row, error)
}

var tableNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validTable(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
