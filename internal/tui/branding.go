package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const AppName = "jobfeed"

// LogoLines is the block logo shown on the empty screen and in the banner.
var LogoLines = []string{
	"  ▀█ █▀█ █▄▄ █▀▀ █▀▀ █▀▀ █▀▄",
	"█▄▄█ █▄█ █▄█ █▀  ██▄ ██▄ █▄▀",
}

const CompactLogo = `jobfeed ›`

// Banner gradient colors
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#F59E0B"),
	lipgloss.Color("#F97316"),
	lipgloss.Color("#10B981"),
	lipgloss.Color("#0EA5E9"),
}

var (
	PrimaryColor   = lipgloss.Color("#F59E0B") // Saffron
	SecondaryColor = lipgloss.Color("#0EA5E9") // Sky
	AccentColor    = lipgloss.Color("#34D399") // Mint

	BackgroundColor = lipgloss.Color("#111827")
	SurfaceColor    = lipgloss.Color("#1F2937")
	TextColor       = lipgloss.Color("#F3F4F6")
	MutedColor      = lipgloss.Color("#9CA3AF")

	NewColor      = lipgloss.Color("#FDE047")
	FeaturedColor = lipgloss.Color("#F472B6")
	ErrorColor    = lipgloss.Color("#EF4444")
	SuccessColor  = lipgloss.Color("#10B981")
)

var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Bold(true).
			Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	NewBadgeStyle = lipgloss.NewStyle().
			Foreground(NewColor).
			Bold(true)

	FeaturedBadgeStyle = lipgloss.NewStyle().
				Foreground(FeaturedColor).
				Bold(true)

	OrganizationStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor)

	DateStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Faint(true)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	StatusSuccessStyle = lipgloss.NewStyle().
				Foreground(SuccessColor)

	StatusWarnStyle = lipgloss.NewStyle().
			Foreground(NewColor)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)
)

func GetWelcomeMessage() string {
	return GetCompactBanner("No jobs yet • press r to fetch")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	return lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, coloredLines...),
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the version banner printed by the CLI.
func Banner(version string) string {
	lines := append([]string(nil), LogoLines...)
	lines = append(lines, "")

	tagline := "    Government Job Feed"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline += " " + version
	}
	lines = append(lines, tagline)

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	border := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3)

	return lipgloss.NewStyle().
		Width(60).
		Align(lipgloss.Center).
		Render(border.Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...)))
}

func ShowBanner(w io.Writer, version string) {
	fmt.Fprintln(w, Banner(version))
}
