package main

import (
	"fmt"
	"strings"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/charmbracelet/lipgloss"
)

const cardWidth = 72

// renderReply renders a decoded reply for the terminal.
func renderReply(s styles, reply response.Reply, sources []proto.Source) string {
	var sb strings.Builder
	switch reply.Type {
	case response.TypeJobList:
		sb.WriteString(renderJobs(s, reply.Items))
	case response.TypeImages:
		sb.WriteString(renderImages(s, reply))
	default:
		sb.WriteString(strings.TrimSpace(reply.Content))
		sb.WriteString("\n")
	}
	if len(sources) > 0 {
		sb.WriteString(renderSources(s, sources))
	}
	return sb.String()
}

func renderJobs(s styles, jobs []response.Job) string {
	if len(jobs) == 0 {
		return s.Comment.Render("Aucune offre trouvée.") + "\n"
	}
	var sb strings.Builder
	for _, job := range jobs {
		sb.WriteString(renderJob(s, job.WithDefaults()))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderJob(s styles, job response.Job) string {
	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.Badge.Render(job.Initials()),
		" ",
		lipgloss.JoinVertical(
			lipgloss.Left,
			s.JobTitle.Render(job.Title),
			s.Company.Render(job.Company),
		),
	)

	tags := []string{
		s.Tag.Render(job.Location),
		s.Tag.Render(job.ContractType),
		s.Tag.Render(job.Duration),
		s.Tag.Render(job.Source),
	}

	lines := []string{
		header,
		"",
		strings.Join(tags, " "),
		s.Salary.Render(job.Salary),
		"",
		job.DescriptionLong,
		"",
	}
	for _, m := range job.Missions {
		lines = append(lines, s.Mission.Render("• "+m))
	}
	lines = append(lines, "", s.Link.Render(job.Link()))

	return s.Card.Width(cardWidth).Render(strings.Join(lines, "\n"))
}

func renderImages(s styles, reply response.Reply) string {
	var sb strings.Builder
	if reply.Query != "" {
		sb.WriteString(s.JobTitle.Render(reply.Query))
		sb.WriteString("\n\n")
	}
	for _, kw := range reply.Keywords {
		fmt.Fprintf(&sb, "%s %s\n", s.Quote.Render(kw), s.Link.Render(response.ImageURL(kw)))
	}
	return sb.String()
}

func renderSources(s styles, sources []proto.Source) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(s.Comment.Render("Sources:"))
	sb.WriteString("\n")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		fmt.Fprintf(&sb, "%s %s %s\n", s.Comment.Render(fmt.Sprintf("%d.", i+1)), title, s.Link.Render(src.URI))
	}
	return sb.String()
}

// renderStatus renders the connection line: the model in use, or
// disconnected when there is none.
func renderStatus(s styles, model string) string {
	if model == "" {
		return s.Offline.Render("Disconnected")
	}
	return s.Connected.Render("Connected: ") + s.Model.Render(model)
}
