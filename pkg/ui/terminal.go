package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ASCIILogo is printed at the start of interactive commands
const ASCIILogo = `
    ╔════════════════════════════════════════════════════╗
    ║  ┳━┓┏━┓┳━┓┳  ┏━┓┓ ┳  ┏━┓┏━┓┳━┓┏━┓┳━┓┏━┓┳━┓         ║
    ║  ┃┳┛┣━ ┃━┛┃  ┃━┫┗┏┛  ┗━┓┃  ┃┳┛┃━┫┃━┛┣━ ┃┳┛         ║
    ║  ┇┗┛┗━┛┇  ┇━┛┛ ┇ ┇   ━━┛┗━┛┇┗┛┛ ┇┇  ┗━┛┇┗┛         ║
    ║          BATTLE REPLAY HARVESTER                   ║
    ╚════════════════════════════════════════════════════╝
`

// Color functions for terminal output. Styles degrade to plain text when
// stdout is not a terminal.
var (
	Cyan    = paint(lipgloss.NewStyle().Foreground(neonCyan))
	Yellow  = paint(lipgloss.NewStyle().Foreground(neonYellow))
	Red     = paint(lipgloss.NewStyle().Foreground(neonRed).Bold(true))
	Green   = paint(lipgloss.NewStyle().Foreground(neonGreen).Bold(true))
	Magenta = paint(lipgloss.NewStyle().Foreground(neonMagenta).Bold(true))
	Dim     = paint(lipgloss.NewStyle().Foreground(dimWhite).Faint(true))
)

func paint(style lipgloss.Style) func(string) string {
	return func(text string) string {
		return style.Render(text)
	}
}

// withDetails appends the non-empty details to msg
func withDetails(msg string, details []string) string {
	var parts []string
	for _, d := range details {
		if d != "" {
			parts = append(parts, d)
		}
	}
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, ", ")
}

// PrintLogo prints the ASCII logo
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message with optional details
func PrintError(msg string, details ...string) {
	fmt.Println(Red(withDetails(msg, details)))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message with optional details
func PrintWarning(msg string, details ...string) {
	fmt.Println(Yellow(withDetails(msg, details)))
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	fmt.Println(Magenta(msg))
}
