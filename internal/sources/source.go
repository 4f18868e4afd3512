// Package sources holds one listing adapter per job board. Each adapter
// turns raw listing markup into candidate postings; deduplication and
// relevance filtering happen downstream.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/fetcher"
	"github.com/kvanticoder/jobscout/internal/job"
)

// Query is one (search keyword, location) unit of work.
type Query struct {
	Keyword  string `mapstructure:"keyword"`
	Location string `mapstructure:"location"`
}

// RenderFunc loads a page in a browser and returns the rendered DOM.
// It matches fetcher.Rendered and is injectable for tests.
type RenderFunc func(ctx context.Context, logger *zap.Logger, url, waitSelector string, timeout time.Duration) (string, error)

// Deps aggregates the collaborators shared by all sources.
type Deps struct {
	Fetcher *fetcher.Client
	Logger  *zap.Logger
	Render  RenderFunc
}

// Source is a single job board adapter. Scrape never aborts the whole run:
// fetch misses and unparseable records are logged and skipped.
type Source interface {
	Name() string
	Scrape(ctx context.Context, deps Deps, q Query) (*job.Postings, error)
}

// Build constructs the enabled sources from per-source option maps keyed by
// source name. Unknown names are rejected so config typos surface early.
func Build(opts map[string]map[string]any) ([]Source, error) {
	factories := map[string]func(map[string]any) (Source, error){
		"gamejobs":  newGameJobs,
		"linkedin":  newLinkedIn,
		"hitmarker": newHitmarker,
	}

	var built []Source
	for name, raw := range opts {
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}

		var common struct {
			Enabled bool `mapstructure:"enabled"`
		}
		if err := mapstructure.Decode(raw, &common); err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		if !common.Enabled {
			continue
		}

		src, err := factory(raw)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		built = append(built, src)
	}
	return built, nil
}

func decodeOptions(raw map[string]any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:  target,
		TagName: "mapstructure",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
