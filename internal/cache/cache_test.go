package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeFetcher struct {
	bodies map[string]string
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

var t0 = time.Date(2024, 11, 5, 20, 0, 0, 0, time.Local)

func testStore(t *testing.T, f Fetcher) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	s, err := Open(t.TempDir(), time.Hour, f, WithClock(clock))
	require.NoError(t, err)
	return s, clock
}

func seed(t *testing.T, s *Store, key, name, body string, modTime time.Time) string {
	t.Helper()
	path := s.Path(key, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestFetchMissDownloadsAndPersistsVerbatim(t *testing.T) {
	body := "[ {\"cid\": \"1\",  \"cnm\": \"ALAMANCE\"} ]\n"
	f := &fakeFetcher{bodies: map[string]string{"u": body}}
	s, _ := testStore(t, f)

	var got []map[string]string
	ts, err := s.Fetch(context.Background(), "20241105", "county.txt", "u", false, &got)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.True(t, ts.Equal(t0), "timestamp should be the retrieval time, got %v", ts)
	require.Len(t, got, 1)
	assert.Equal(t, "ALAMANCE", got[0]["cnm"])

	data, err := os.ReadFile(s.Path("20241105", "county.txt"))
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	e, ok := s.Lookup("20241105", "county.txt")
	require.True(t, ok)
	assert.True(t, e.ModTime.Equal(t0), "mtime should be stamped with retrieval time")
}

func TestFetchFreshHitUsesFileTimestamp(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := testStore(t, f)
	mod := t0.Add(-30 * time.Minute)
	seed(t, s, "20241105", "office.txt", `[{"lbl":"FED","des":"FEDERAL"}]`, mod)

	var got []map[string]string
	ts, err := s.Fetch(context.Background(), "20241105", "office.txt", "u", false, &got)
	require.NoError(t, err)

	assert.Equal(t, 0, f.calls, "fresh entry must not hit the network")
	assert.True(t, ts.Equal(mod), "expected file mtime %v, got %v", mod, ts)
	assert.Equal(t, "FED", got[0]["lbl"])
}

func TestFetchStaleEntryRefreshes(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"u": `["new"]`}}
	s, _ := testStore(t, f)
	seed(t, s, "k", "n", `["old"]`, t0.Add(-61*time.Minute))

	var got []string
	ts, err := s.Fetch(context.Background(), "k", "n", "u", false, &got)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, []string{"new"}, got)
	assert.True(t, ts.Equal(t0))
}

func TestFetchExactlyOneHourIsFresh(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := testStore(t, f)
	seed(t, s, "k", "n", `[]`, t0.Add(-time.Hour))

	var got []string
	_, err := s.Fetch(context.Background(), "k", "n", "u", false, &got)
	require.NoError(t, err)
	assert.Equal(t, 0, f.calls)
}

func TestFetchForceRefreshesFreshEntry(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"u": `["forced"]`}}
	s, _ := testStore(t, f)
	seed(t, s, "k", "n", `["cached"]`, t0.Add(-time.Minute))

	var got []string
	_, err := s.Fetch(context.Background(), "k", "n", "u", true, &got)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, []string{"forced"}, got)
}

func TestFetchFailureLeavesExistingCopyUntouched(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	s, _ := testStore(t, f)
	mod := t0.Add(-2 * time.Hour)
	path := seed(t, s, "k", "n", `["old"]`, mod)

	var got []string
	_, err := s.Fetch(context.Background(), "k", "n", "https://upstream/n", false, &got)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "https://upstream/n", fe.URL)
	assert.Nil(t, got, "stale copy must not be served on fetch failure")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `["old"]`, string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mod))
}

func TestFetchFailureWritesNothing(t *testing.T) {
	f := &fakeFetcher{err: errors.New("timeout")}
	s, _ := testStore(t, f)

	var got []string
	_, err := s.Fetch(context.Background(), "k", "n", "u", false, &got)
	require.ErrorIs(t, err, ErrFetch)

	_, ok := s.Lookup("k", "n")
	assert.False(t, ok)
	entries, err := os.ReadDir(filepath.Join(s.Dir()))
	require.NoError(t, err)
	for _, e := range entries {
		inner, _ := os.ReadDir(filepath.Join(s.Dir(), e.Name()))
		assert.Empty(t, inner, "no temp or partial files expected")
	}
}

func TestFetchCorruptHitIsNotRepaired(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"u": `["good"]`}}
	s, _ := testStore(t, f)
	path := seed(t, s, "k", "n", `{not json`, t0.Add(-time.Minute))

	var got []string
	_, err := s.Fetch(context.Background(), "k", "n", "u", false, &got)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptCache)
	assert.Equal(t, 0, f.calls)

	var ce *CorruptCacheError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, path, ce.Path)

	data, _ := os.ReadFile(path)
	assert.Equal(t, `{not json`, string(data))
}

func TestTrackerReportsNewestTimestamp(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"u": `[]`}}
	s, clock := testStore(t, f)
	older := t0.Add(-50 * time.Minute)
	newer := t0.Add(-10 * time.Minute)
	seed(t, s, "k", "a", `[]`, older)
	seed(t, s, "k", "b", `[]`, newer)

	tr := s.Track()
	var v []string
	_, err := tr.Fetch(context.Background(), "k", "a", "u", false, &v)
	require.NoError(t, err)
	_, err = tr.Fetch(context.Background(), "k", "b", "u", false, &v)
	require.NoError(t, err)
	assert.True(t, tr.DataTimestamp().Equal(newer))

	clock.now = t0.Add(5 * time.Minute)
	_, err = tr.Fetch(context.Background(), "k", "c", "u", false, &v)
	require.NoError(t, err)
	assert.True(t, tr.DataTimestamp().Equal(clock.now))
}

func TestTrackerIgnoresFailedFetches(t *testing.T) {
	f := &fakeFetcher{err: errors.New("down")}
	s, _ := testStore(t, f)
	tr := s.Track()

	var v []string
	_, err := tr.Fetch(context.Background(), "k", "a", "u", false, &v)
	require.Error(t, err)
	assert.True(t, tr.DataTimestamp().IsZero())
}

func TestWatermark(t *testing.T) {
	var w Watermark
	assert.True(t, w.Time().IsZero())
	w.Observe(t0)
	w.Observe(t0.Add(-time.Hour))
	assert.True(t, w.Time().Equal(t0))
	w.Observe(t0.Add(time.Second))
	assert.True(t, w.Time().Equal(t0.Add(time.Second)))
}

func TestStats(t *testing.T) {
	s, _ := testStore(t, &fakeFetcher{})
	seed(t, s, "20241105", "county.txt", "12345", t0)
	seed(t, s, "20241105", "office.txt", "123", t0)
	seed(t, s, "latest", "elections.txt", "12", t0)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Elections: 2, Files: 3, Bytes: 10}, st)
}

func TestPruneDeletesOldFilesAndEmptyDirs(t *testing.T) {
	s, _ := testStore(t, &fakeFetcher{})
	seed(t, s, "20200303", "county.txt", "[]", t0.Add(-72*time.Hour))
	seed(t, s, "20241105", "county.txt", "[]", t0.Add(-72*time.Hour))
	seed(t, s, "20241105", "office.txt", "[]", t0.Add(-time.Hour))

	deleted, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = os.Stat(filepath.Join(s.Dir(), "20200303"))
	assert.True(t, os.IsNotExist(err), "emptied election dir should be removed")

	_, ok := s.Lookup("20241105", "office.txt")
	assert.True(t, ok)
	_, ok = s.Lookup("20241105", "county.txt")
	assert.False(t, ok)
}

func TestPruneNothingToDelete(t *testing.T) {
	s, _ := testStore(t, &fakeFetcher{})
	seed(t, s, "k", "n", "[]", t0)

	deleted, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestOpenCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "deep")
	_, err := Open(dir, 0, &fakeFetcher{})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
