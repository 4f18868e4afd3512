// Package identity derives stable content-addressed identifiers for job
// postings. The id is a pure function of the posting URL after
// canonicalization, so the same job found across runs or across sources
// always hashes to the same value.
package identity

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var ErrUnusableURL = errors.New("url cannot be used as an identity")

// CanonicalURL lowercases the raw URL, drops every query parameter whose key
// starts with "utm_" and strips the trailing slash.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUnusableURL
	}

	parsed, err := url.Parse(strings.ToLower(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnusableURL, err)
	}
	if parsed.Host == "" && parsed.Path == "" {
		return "", ErrUnusableURL
	}

	query := parsed.Query()
	for key := range query {
		if strings.HasPrefix(key, "utm_") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()

	return strings.TrimSuffix(parsed.String(), "/"), nil
}

// FromURL returns the lowercase hex sha256 digest of the canonical URL.
func FromURL(raw string) (string, error) {
	canonical, err := CanonicalURL(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", sum[:]), nil
}

// SeenSet tracks the ids accepted during a run. One instance is created per
// scraping run, seeded from persisted ids, and passed by reference into each
// source scrape. It only grows: there is no eviction.
type SeenSet struct {
	ids mapset.Set[string]
}

func NewSeenSet(ids ...string) *SeenSet {
	return &SeenSet{ids: mapset.NewThreadUnsafeSet(ids...)}
}

// Add marks the id as seen and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	return s.ids.Add(id)
}

func (s *SeenSet) Contains(id string) bool {
	return s.ids.Contains(id)
}

func (s *SeenSet) Len() int {
	return s.ids.Cardinality()
}
