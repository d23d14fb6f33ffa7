package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the lessonweave banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{" _                                                         ", "#818cf8"},
		{"| | ___  ___ ___  ___  _ __ __      _____  __ ___   _____ ", "#a78bfa"},
		{"| |/ _ \\/ __/ __|/ _ \\| '_ \\\\ \\ /\\ / / _ \\/ _` \\ \\ / / _ \\", "#c084fc"},
		{"| |  __/\\__ \\__ \\ (_) | | | |\\ V  V /  __/ (_| |\\ V /  __/", "#e879f9"},
		{"|_|\\___||___/___/\\___/|_| |_| \\_/\\_/ \\___|\\__,_| \\_/ \\___|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
