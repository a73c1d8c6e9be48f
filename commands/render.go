package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/c360studio/artifactguard/report"
	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(fg)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	faintStyle   = lipgloss.NewStyle().Foreground(faint)
	passStyle    = lipgloss.NewStyle().Foreground(success)
	failStyle    = lipgloss.NewStyle().Foreground(danger)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
)

func severityStyle(s validation.Severity) lipgloss.Style {
	switch s {
	case validation.SeverityCritical, validation.SeverityHigh:
		return failStyle
	case validation.SeverityMedium:
		return warnStyle
	default:
		return dimStyle
	}
}

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 80:
		return passStyle
	case score >= 50:
		return warnStyle
	default:
		return failStyle
	}
}

// renderDocument renders the composed compliance document for the terminal.
func renderDocument(artifactID string, doc *report.Document) string {
	var b strings.Builder

	scoreLine := scoreStyle(doc.ComplianceScore).Bold(true).
		Render(fmt.Sprintf("%.2f/100", doc.ComplianceScore))
	header := titleStyle.Render(artifactID) + "  " + scoreLine
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(doc.Summary))
	b.WriteString("\n")

	if len(doc.Issues) > 0 {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s %s\n",
			sectionStyle.Render("Issues"),
			dimStyle.Render(fmt.Sprintf("(%d)", len(doc.Issues)))))
		for _, issue := range doc.Issues {
			marker := severityStyle(issue.Severity).Render("●")
			line := fmt.Sprintf("    %s [%s/%s] %s", marker, issue.Severity, issue.Type, issue.Description)
			if issue.Location != "" {
				line += "  " + faintStyle.Render(issue.Location)
			}
			b.WriteString(line + "\n")
			if issue.Remediation != "" {
				b.WriteString("      " + dimStyle.Render("fix: "+issue.Remediation) + "\n")
			}
		}
	}

	if len(doc.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString("  " + sectionStyle.Render("Recommendations") + "\n")
		for _, rec := range doc.Recommendations {
			b.WriteString("    " + dimStyle.Render("→ "+rec) + "\n")
		}
	}

	return b.String()
}

// renderRules renders the loaded rule set as a list.
func renderRules(rules []rule.Definition) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("  %s %s\n",
		sectionStyle.Render("Rules"),
		dimStyle.Render(fmt.Sprintf("(%d)", len(rules)))))

	for _, def := range rules {
		state := passStyle.Render("enabled")
		if !def.Enabled {
			state = faintStyle.Render("disabled")
		}
		b.WriteString(fmt.Sprintf("    %s %s %s %s\n",
			severityStyle(def.Severity).Render("●"),
			titleStyle.Render(def.ID),
			dimStyle.Render(fmt.Sprintf("[%s/%s]", def.Type, def.Severity)),
			state))
		if def.Description != "" {
			b.WriteString("      " + faintStyle.Render(def.Description) + "\n")
		}
	}

	return b.String()
}
