package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/revisor/internal/model"
)

// Color palette.
var (
	colorRed    = lipgloss.Color("#ff5555")
	colorGreen  = lipgloss.Color("#50fa7b")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorPurple = lipgloss.Color("#bd93f9")
	colorOrange = lipgloss.Color("#ffb86c")
	colorDim    = lipgloss.Color("#6272a4")
)

// Style definitions.
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	addedLineStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	deletedLineStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	hunkHeaderStyle = lipgloss.NewStyle().
			Foreground(colorPurple)

	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		model.SeverityHigh:     lipgloss.NewStyle().Foreground(colorOrange).Bold(true),
		model.SeverityMedium:   lipgloss.NewStyle().Foreground(colorYellow),
		model.SeverityLow:      lipgloss.NewStyle().Foreground(colorBlue),
		model.SeverityInfo:     lipgloss.NewStyle().Foreground(colorDim),
	}

	riskStyles = map[model.RiskLevel]lipgloss.Style{
		model.RiskCritical: lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		model.RiskHigh:     lipgloss.NewStyle().Foreground(colorOrange).Bold(true),
		model.RiskMedium:   lipgloss.NewStyle().Foreground(colorYellow),
		model.RiskLow:      lipgloss.NewStyle().Foreground(colorGreen),
	}
)

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "!!"
	case model.SeverityHigh:
		return "! "
	case model.SeverityMedium:
		return "* "
	case model.SeverityLow:
		return "- "
	default:
		return "  "
	}
}
