// Package styles holds the terminal palette shared by the command line
// listings, the interactive browser and the markdown run report.
package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"

	"insncorpus/internal/classify"
)

var (
	Title    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	Mnemonic = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Malibu.Hex()))
	Bytes    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	Menu     = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

var outcomeStyles = map[classify.Outcome]lipgloss.Style{
	classify.Built:        lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex())),
	classify.Pseudo:       lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex())),
	classify.Unsupported:  lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Zest.Hex())),
	classify.SpecialError: lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cheeky.Hex())).Bold(true),
}

// Outcome returns the style an outcome is rendered with.
func Outcome(o classify.Outcome) lipgloss.Style {
	if s, ok := outcomeStyles[o]; ok {
		return s
	}
	return Muted
}
