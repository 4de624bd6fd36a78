package display

import (
	"fmt"
	"io"

	"github.com/backmassage/loopforge/internal/term"
)

// PrintBanner writes the ASCII art banner, in magenta when colors are on.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, ` _                    __
| | ___   ___  _ __  / _| ___  _ __ __ _  ___
| |/ _ \ / _ \| '_ \| |_ / _ \| '__/ _`+"`"+` |/ _ \
| | (_) | (_) | |_) |  _| (_) | | | (_| |  __/
|_|\___/ \___/| .__/|_|  \___/|_|  \__, |\___|
              |_|                  |___/
`)
	fmt.Fprint(w, term.NC)
}
