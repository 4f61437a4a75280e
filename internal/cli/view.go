package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"signup/internal/registration"
	"signup/internal/registration/models"
)

var (
	accent  = lipgloss.Color("#2563EB")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle  = lipgloss.NewStyle().Foreground(dim)
	inlineErr  = lipgloss.NewStyle().Foreground(danger)

	bannerBase = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	successBanner = bannerBase.BorderForeground(success).Foreground(success)
	failureBanner = bannerBase.BorderForeground(danger).Foreground(danger)

	buttonStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 2).Background(accent)
	disabledStyle = lipgloss.NewStyle().Padding(0, 2).Foreground(dim)
)

func renderTitle() string {
	return titleStyle.Render("Create your account")
}

// renderInline shows the message for one field, or nothing.
func renderInline(msg string) string {
	if msg == "" {
		return ""
	}
	return inlineErr.Render("  ! " + msg)
}

func renderButton(v registration.View) string {
	if v.SubmitDisabled {
		return disabledStyle.Render(v.SubmitLabel)
	}
	return buttonStyle.Render(v.SubmitLabel)
}

// renderView draws the banner, the remaining inline errors and the footer.
func renderView(v registration.View, loginTarget string) string {
	var b strings.Builder
	if v.Banner != "" {
		style := failureBanner
		if v.Phase == models.PhaseSucceeded {
			style = successBanner
		}
		b.WriteString(style.Render(v.Banner))
		b.WriteString("\n")
	}
	if v.VerificationNotice != "" {
		b.WriteString(v.VerificationNotice)
		b.WriteString("\n")
	}
	for _, f := range models.Fields {
		if msg := v.FieldErrors[f]; msg != "" {
			b.WriteString(renderInline(msg))
			b.WriteString("\n")
		}
	}
	b.WriteString(hintStyle.Render("Already have an account? Log in at " + loginTarget))
	b.WriteString("\n")
	return b.String()
}
