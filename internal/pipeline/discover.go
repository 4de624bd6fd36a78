package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/backmassage/loopforge/internal/planner"
)

// Extension allow-lists (lowercase, with leading dot).
var (
	VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".m4v", ".webm"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}
	AudioExtensions = planner.AudioExtensions
)

// ErrNoInputs is wrapped in a ResourceError when a source folder holds no
// usable files.
var ErrNoInputs = errors.New("no matching files")

// Discover lists the files directly inside dir whose extension is in exts,
// sorted lexicographically. Hidden files and subdirectories are skipped.
func Discover(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// discoverRequired is Discover for a folder the job cannot run without:
// a missing folder or an empty result is a *ResourceError.
func discoverRequired(resource, dir string, exts []string) ([]string, error) {
	if dir == "" {
		return nil, &ResourceError{Resource: resource, Err: errors.New("folder not configured")}
	}
	files, err := Discover(dir, exts)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ResourceError{Resource: resource, Path: dir, Err: fmt.Errorf("folder does not exist")}
		}
		return nil, &ResourceError{Resource: resource, Path: dir, Err: err}
	}
	if len(files) == 0 {
		return nil, &ResourceError{Resource: resource, Path: dir, Err: fmt.Errorf("%w (%s)", ErrNoInputs, strings.Join(exts, " "))}
	}
	return files, nil
}

// discoverOptional is Discover for a folder that may be absent.
func discoverOptional(dir string, exts []string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	files, err := Discover(dir, exts)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return files, err
}
