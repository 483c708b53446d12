package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxAge is how long a cached dataset is served before it is re-fetched.
const DefaultMaxAge = time.Hour

// Fetcher retrieves the raw body published at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store is a file cache of upstream datasets, one directory per
// election and one file per logical dataset. Freshness is the file's
// modification time.
type Store struct {
	dir     string
	maxAge  time.Duration
	fetcher Fetcher
	clock   Clock
	log     *zap.Logger
}

type Option func(*Store)

func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func Open(dir string, maxAge time.Duration, fetcher Fetcher, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	s := &Store{
		dir:     dir,
		maxAge:  maxAge,
		fetcher: fetcher,
		clock:   SystemClock(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the file backing (electionKey, name).
func (s *Store) Path(electionKey, name string) string {
	return filepath.Join(s.dir, electionKey, name)
}

// Lookup reports the cached entry for (electionKey, name), if any.
func (s *Store) Lookup(electionKey, name string) (Entry, bool) {
	path := s.Path(electionKey, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Entry{Path: path}, false
	}
	return Entry{Path: path, ModTime: info.ModTime()}, true
}

// NeedsRefresh reports whether an entry must be re-fetched.
func (s *Store) NeedsRefresh(e Entry, exists bool) bool {
	if !exists {
		return true
	}
	return s.clock.Now().Sub(e.ModTime) > s.maxAge
}

// Fetch decodes the dataset (electionKey, name) into v and returns the
// time the data was retrieved from upstream. A missing, expired or
// forced entry is re-fetched from url and persisted verbatim first.
func (s *Store) Fetch(ctx context.Context, electionKey, name, url string, force bool, v any) (time.Time, error) {
	entry, exists := s.Lookup(electionKey, name)

	if force || s.NeedsRefresh(entry, exists) {
		s.log.Debug("refreshing cache entry",
			zap.String("path", entry.Path),
			zap.Bool("exists", exists),
			zap.Bool("forced", force))

		body, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return time.Time{}, &FetchError{URL: url, Err: err}
		}
		fetchedAt := s.clock.Now()
		if err := s.write(entry.Path, body, fetchedAt); err != nil {
			return time.Time{}, err
		}
		if err := json.Unmarshal(body, v); err != nil {
			return time.Time{}, &CorruptCacheError{Path: entry.Path, Err: err}
		}
		return fetchedAt, nil
	}

	s.log.Debug("cache hit", zap.String("path", entry.Path), zap.Time("modified", entry.ModTime))

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return time.Time{}, &CorruptCacheError{Path: entry.Path, Err: err}
	}
	return entry.ModTime, nil
}

// write replaces path with body via a temp file and rename, so readers
// never see a partial file, and stamps it with the retrieval time.
func (s *Store) write(path string, body []byte, at time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Chtimes(tmpName, at, at); err != nil {
		return fmt.Errorf("stamping cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Stats counts election directories, cached files and their total size.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir {
				st.Elections++
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.Files++
		st.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walking cache dir: %w", err)
	}
	return st, nil
}

// Prune deletes cached files not refreshed within olderThan and removes
// election directories left empty. It returns the number of files deleted.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	elections, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading cache dir: %w", err)
	}

	deleted := 0
	for _, election := range elections {
		if !election.IsDir() {
			continue
		}
		dir := filepath.Join(s.dir, election.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return deleted, fmt.Errorf("reading %s: %w", dir, err)
		}
		remaining := len(files)
		for _, f := range files {
			info, err := f.Info()
			if err != nil {
				return deleted, err
			}
			if f.IsDir() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return deleted, fmt.Errorf("removing %s: %w", f.Name(), err)
			}
			deleted++
			remaining--
		}
		if remaining == 0 {
			if err := os.Remove(dir); err != nil {
				return deleted, fmt.Errorf("removing %s: %w", dir, err)
			}
		}
	}
	return deleted, nil
}

// Tracker serves fetches from a Store and keeps the newest data
// timestamp across every dataset it served.
type Tracker struct {
	store *Store
	mark  Watermark
}

func (s *Store) Track() *Tracker {
	return &Tracker{store: s}
}

func (t *Tracker) Fetch(ctx context.Context, electionKey, name, url string, force bool, v any) (time.Time, error) {
	ts, err := t.store.Fetch(ctx, electionKey, name, url, force, v)
	if err != nil {
		return ts, err
	}
	t.mark.Observe(ts)
	return ts, nil
}

// DataTimestamp is the newest timestamp of any dataset served so far.
func (t *Tracker) DataTimestamp() time.Time {
	return t.mark.Time()
}
