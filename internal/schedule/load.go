package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/text/language"

	appLog "fastcal/internal/log"
)

// LoadError reports a dataset that could not be fetched or parsed. It is
// fatal to the load that produced it; retrying is up to the caller.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source says where the dataset lives. URL wins over Path when both are set.
type Source struct {
	Path     string
	URL      string
	CacheDir string
	Language language.Tag
}

func (s Source) String() string {
	if s.URL != "" {
		return redactURL(s.URL)
	}
	return s.Path
}

// Load reads and parses the dataset. Every failure is returned as *LoadError.
func Load(ctx context.Context, src Source) (*Repository, error) {
	var body []byte
	switch {
	case src.URL != "":
		res, err := NewFetcher(src.CacheDir).Fetch(ctx, src.URL)
		if err != nil {
			return nil, &LoadError{Source: src.String(), Err: err}
		}
		body = res.Body
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, &LoadError{Source: src.String(), Err: err}
		}
		body = data
	default:
		return nil, &LoadError{Source: "<unset>", Err: errors.New("no dataset path or URL configured")}
	}

	repo, err := Parse(body, src.Language)
	if err != nil {
		return nil, &LoadError{Source: src.String(), Err: err}
	}
	return repo, nil
}

// Store holds the current Repository for long-running processes. Reloads
// swap in a whole new Repository; readers never see a partial dataset.
type Store struct {
	current atomic.Pointer[Repository]
	lastErr atomic.Pointer[LoadError]
}

// NewStore returns a Store, optionally seeded with repo.
func NewStore(repo *Repository) *Store {
	s := &Store{}
	if repo != nil {
		s.current.Store(repo)
	}
	return s
}

// Current returns the active dataset, or nil if none ever loaded.
func (s *Store) Current() *Repository { return s.current.Load() }

// Err returns the last load failure, or nil if the last load succeeded.
func (s *Store) Err() *LoadError { return s.lastErr.Load() }

// Reload loads src and swaps it in. On failure the previous dataset stays
// active and the error is remembered.
func (s *Store) Reload(ctx context.Context, src Source) error {
	repo, err := Load(ctx, src)
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			le = &LoadError{Source: src.String(), Err: err}
		}
		s.lastErr.Store(le)
		appLog.Error("dataset reload failed", err, "source", src.String())
		return err
	}
	s.current.Store(repo)
	s.lastErr.Store(nil)
	appLog.Info("dataset reloaded", "source", src.String(), "regions", len(repo.ListRegions()))
	return nil
}
