package naming

import (
	"path/filepath"
	"strings"
)

// VideoExt is the container every video job writes.
const VideoExt = ".mp4"

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath builds <outputDir>/<prefix><stem>.mp4 for an input file.
func OutputPath(outputDir, prefix, input string) string {
	return filepath.Join(outputDir, prefix+Stem(input)+VideoExt)
}

// ExtractPath builds <outputDir>/<stem>_audio.<format>.
func ExtractPath(outputDir, input, format string) string {
	return filepath.Join(outputDir, Stem(input)+"_audio."+strings.TrimPrefix(format, "."))
}

// WorkspaceName is the directory name used for an input's scratch files.
// suffix keeps concurrent or repeated runs apart.
func WorkspaceName(input, suffix string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, Stem(input))
	return "tmp_" + stem + "_" + suffix
}
