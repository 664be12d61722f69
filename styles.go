package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	AppName      lipgloss.Style
	CliArgs      lipgloss.Style
	Comment      lipgloss.Style
	ErrorHeader  lipgloss.Style
	ErrorDetails lipgloss.Style
	ErrPadding   lipgloss.Style
	Flag         lipgloss.Style
	FlagComma    lipgloss.Style
	FlagDesc     lipgloss.Style
	InlineCode   lipgloss.Style
	Link         lipgloss.Style
	Quote        lipgloss.Style
	SHA1         lipgloss.Style
	Spinner      lipgloss.Style

	Card      lipgloss.Style
	Badge     lipgloss.Style
	JobTitle  lipgloss.Style
	Company   lipgloss.Style
	Tag       lipgloss.Style
	Salary    lipgloss.Style
	Mission   lipgloss.Style
	Model     lipgloss.Style
	Connected lipgloss.Style
	Offline   lipgloss.Style
	Success   lipgloss.Style
	Failure   lipgloss.Style
	Timeago   lipgloss.Style
}

func makeStyles(r *lipgloss.Renderer) (s styles) {
	const horizontalEdgePadding = 2
	s.AppName = r.NewStyle().Bold(true)
	s.CliArgs = r.NewStyle().Foreground(lipgloss.Color("#585858"))
	s.Comment = r.NewStyle().Foreground(lipgloss.Color("#757575"))
	s.ErrorHeader = r.NewStyle().Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#FF5F87")).Bold(true).Padding(0, 1).SetString("ERROR")
	s.ErrorDetails = s.Comment
	s.ErrPadding = r.NewStyle().Padding(0, horizontalEdgePadding)
	s.Flag = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00B594", Dark: "#3EEFCF"}).Bold(true)
	s.FlagComma = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5DD6C0", Dark: "#427C72"}).SetString(",")
	s.FlagDesc = s.Comment
	s.InlineCode = r.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Background(lipgloss.Color("#3A3A3A")).Padding(0, 1)
	s.Link = r.NewStyle().Foreground(lipgloss.Color("#00AF87")).Underline(true)
	s.Quote = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF71D0", Dark: "#FF78D2"})
	s.SHA1 = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5DD6C0", Dark: "#427C72"})
	s.Spinner = r.NewStyle().Foreground(lipgloss.Color("212"))

	s.Card = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.AdaptiveColor{Light: "#C5C5C5", Dark: "#3A3A3A"}).Padding(0, 1).MarginBottom(1)
	s.Badge = r.NewStyle().Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#4F46E5")).Bold(true).Padding(0, 1)
	s.JobTitle = r.NewStyle().Bold(true)
	s.Company = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#A5B4FC"})
	s.Tag = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#585858", Dark: "#BCBCBC"}).Background(lipgloss.AdaptiveColor{Light: "#EEEEEE", Dark: "#303030"}).Padding(0, 1)
	s.Salary = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00875F", Dark: "#5FD7AF"}).Bold(true)
	s.Mission = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#303030", Dark: "#D0D0D0"})
	s.Model = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8470FF", Dark: "#745CFF"}).Bold(true)
	s.Connected = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00875F", Dark: "#5FD7AF"})
	s.Offline = r.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	s.Success = s.Connected.SetString("✓")
	s.Failure = s.Offline.SetString("✗")
	s.Timeago = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999", Dark: "#555"})
	return s
}
