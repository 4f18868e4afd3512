package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/identity"
	"github.com/kvanticoder/jobscout/internal/job"
)

// FileStore keeps one JSON file per table under a data directory. Writes go
// through a temp file and rename so a crash never truncates a table.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) KnownIDs(_ context.Context) (*identity.SeenSet, error) {
	seen := identity.NewSeenSet()
	for _, table := range []string{TableScanned, TableRated} {
		rows, err := s.readRows(table)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if len(row) > 0 && row[0] != "" {
				seen.Add(row[0])
			}
		}
	}
	return seen, nil
}

func (s *FileStore) Append(_ context.Context, table string, rows [][]string) error {
	if err := validTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	existing, err := s.readRows(table)
	if err != nil {
		return err
	}
	existing = append(existing, rows...)

	if err := s.writeRows(table, existing); err != nil {
		return err
	}

	s.logger.Debug("rows appended",
		zap.String("table", table),
		zap.Int("added", len(rows)),
		zap.Int("total", len(existing)),
	)
	return nil
}

func (s *FileStore) Pending(_ context.Context) ([]job.Row, error) {
	ratedRows, err := s.readRows(TableRated)
	if err != nil {
		return nil, err
	}
	rated := make(map[string]struct{}, len(ratedRows))
	for _, row := range ratedRows {
		if len(row) > 0 {
			rated[row[0]] = struct{}{}
		}
	}

	scanned, err := s.readRows(TableScanned)
	if err != nil {
		return nil, err
	}

	var pending []job.Row
	for _, fields := range scanned {
		row, err := job.RowFromFields(fields)
		if err != nil {
			s.logger.Warn("skipping malformed scanned row", zap.Error(err))
			continue
		}
		if _, done := rated[row.JobID]; done {
			continue
		}
		pending = append(pending, row)
	}
	return pending, nil
}

func (s *FileStore) path(table string) string {
	return filepath.Join(s.dir, table+".json")
}

func (s *FileStore) readRows(table string) ([][]string, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(table))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse table %s: %w", table, err)
	}
	return rows, nil
}

func (s *FileStore) writeRows(table string, rows [][]string) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode table %s: %w", table, err)
	}

	tmp, err := os.CreateTemp(s.dir, table+"_*.tmp")
	if err != nil {
		return fmt.Errorf("write table %s: %w", table, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write table %s: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write table %s: %w", table, err)
	}

	if err := os.Rename(tmp.Name(), s.path(table)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace table %s: %w", table, err)
	}
	return nil
}
