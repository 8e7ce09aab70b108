package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for Gangway.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Teal-to-blue gradient.
	lines := []struct {
		text  string
		color string
	}{
		{"   ____                                        ", "#2dd4bf"},
		{"  / ___| __ _ _ __   __ ___      ____ _ _   _  ", "#22d3ee"},
		{" | |  _ / _` | '_ \\ / _` \\ \\ /\\ / / _` | | | | ", "#38bdf8"},
		{" | |_| | (_| | | | | (_| |\\ V  V / (_| | |_| | ", "#60a5fa"},
		{"  \\____|\\__,_|_| |_|\\__, | \\_/\\_/ \\__,_|\\__, | ", "#818cf8"},
		{"                    |___/               |___/  ", "#a78bfa"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Println()
}
