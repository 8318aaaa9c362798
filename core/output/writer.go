// Package output handles file naming and writing for exported transcripts.
// Filenames follow <Source>-chat-<YYYYMMDD>[-<title>].<ext>; an existing
// file is never overwritten, a " (n)" suffix is added instead.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// maxTitleRunes bounds the title part of a filename.
const maxTitleRunes = 50

// maxSuffix bounds the " (n)" search for a free filename.
const maxSuffix = 999

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	spaceRun     = regexp.MustCompile(`\s+`)
	underRun     = regexp.MustCompile(`_+`)
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write stores data under name (see Filename) and returns the path used.
func (w *Writer) Write(name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 0; n <= maxSuffix; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
		}
		path := filepath.Join(w.OutputDir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating file %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("writing file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing file %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %s in %s", name, w.OutputDir)
}

// Filename builds the export filename for a conversation.
// Example: ("AIStudio", "My: Chat/Plan?", 2026-03-14, ".html") →
// AIStudio-chat-20260314-My_Chat_Plan.html
func Filename(source, title string, now time.Time, ext string) string {
	if source == "" {
		source = "Chat"
	}
	name := SanitizeTitle(source) + "-chat-" + now.Format("20060102")
	if t := SanitizeTitle(title); t != "" {
		name += "-" + t
	}
	return name + ext
}

// SanitizeTitle makes a conversation title safe for use in a filename:
// reserved characters and whitespace become underscores, runs of
// underscores collapse, surrounding underscores are trimmed and the result
// is cut to 50 characters.
func SanitizeTitle(title string) string {
	s := illegalChars.ReplaceAllString(title, "_")
	s = spaceRun.ReplaceAllString(s, "_")
	s = underRun.ReplaceAllString(s, "_")
	s = strings.TrimPrefix(s, "_")
	s = strings.TrimSuffix(s, "_")

	if r := []rune(s); len(r) > maxTitleRunes {
		s = string(r[:maxTitleRunes])
	}
	return s
}
