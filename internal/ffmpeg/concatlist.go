package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/loopforge/internal/planner"
)

// ConcatList renders the playlist in concat demuxer format. Paths are made
// absolute so the list is independent of ffmpeg's working directory.
func ConcatList(pl planner.Playlist) (string, error) {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, seg := range pl.Entries {
		abs, err := filepath.Abs(seg.Path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(abs))
	}
	return b.String(), nil
}

// WriteConcatList writes the concat list for pl to path.
func WriteConcatList(path string, pl planner.Playlist) error {
	body, err := ConcatList(pl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}

// escapeConcatPath closes the quote, emits an escaped quote and reopens it.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
