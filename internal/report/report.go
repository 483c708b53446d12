// Package report renders ranked contests as HTML or CSV.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AriannaStory/CloseNCElections/internal/rank"
)

// Format is an output representation.
type Format string

const (
	HTML Format = "html"
	CSV  Format = "csv"
)

// ErrInvalidOutputFormat indicates an unsupported format selector.
var ErrInvalidOutputFormat = errors.New("invalid output format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case HTML, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q (valid: html, csv)", ErrInvalidOutputFormat, s)
	}
}

// EnsureExtension appends ".<format>" to path unless it already ends with it.
func EnsureExtension(path string, f Format) string {
	ext := "." + string(f)
	if strings.HasSuffix(path, ext) {
		return path
	}
	return path + ext
}

// Metadata is the run-level context printed around the contests.
type Metadata struct {
	Election      time.Time
	DataTimestamp time.Time
	Filters       []string
	Method        rank.Method
	Debug         bool
	Summary       []rank.TypeCount
}

// Render writes contests to w in format f.
func Render(w io.Writer, contests []rank.Contest, meta Metadata, f Format) error {
	switch f {
	case HTML:
		return renderHTML(w, contests, meta)
	case CSV:
		return renderCSV(w, contests, meta)
	default:
		return fmt.Errorf("%w %q", ErrInvalidOutputFormat, f)
	}
}

// WriteFile replaces path with data through a temp file and rename, so
// a failed run never leaves a partial report behind.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}

func pct(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}
