package cache

import "time"

// Entry describes one cached dataset on disk.
type Entry struct {
	Path    string
	ModTime time.Time
}

// Stats summarizes the cache directory.
type Stats struct {
	Elections int
	Files     int
	Bytes     int64
}

// Clock supplies the current time for freshness checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Watermark tracks the newest timestamp observed across a run.
type Watermark struct {
	latest time.Time
}

func (w *Watermark) Observe(t time.Time) {
	if t.After(w.latest) {
		w.latest = t
	}
}

// Time returns the newest observed timestamp, or the zero time.
func (w *Watermark) Time() time.Time {
	return w.latest
}
