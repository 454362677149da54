package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII banner with the library version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	lines := []string{
		"  ____                 _       ",
		" / ___|  ___ _ __   __| | __ _ ",
		" \\___ \\ / _ \\ '_ \\ / _` |/ _` |",
		"  ___) |  __/ | | | (_| | (_| |",
		" |____/ \\___|_| |_|\\__,_|\\__,_|",
	}
	colors := []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

	fmt.Println()
	for i, line := range lines {
		fmt.Println(termenv.String(line).Foreground(p.Color(colors[i])))
	}
	fmt.Println(termenv.String(fmt.Sprintf("  conversational workflows v%s", strings.TrimSpace(version))).Faint())
	fmt.Println()
}
