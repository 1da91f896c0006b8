package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forPelevin/syncsieve/internal/domain/quality"
	"github.com/forPelevin/syncsieve/internal/organize"
	"github.com/forPelevin/syncsieve/internal/report"
	"github.com/forPelevin/syncsieve/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func thresholdsLine(th types.Thresholds) string {
	return fmt.Sprintf("preset %s: min confidence %s, max |offset| %d",
		th.Preset, strconv.FormatFloat(th.MinConfidence, 'f', -1, 64), th.MaxAbsOffset)
}

func renderSummary(s report.Summary, reportPath string) string {
	header := titleStyle.Render("syncsieve "+s.Mode) + "\n" +
		mutedStyle.Render("run "+s.RunID) + "\n" +
		mutedStyle.Render(thresholdsLine(s.Thresholds))

	rows := []string{
		fmt.Sprintf("%-9s %d", "total", s.Total),
		okStyle.Render(fmt.Sprintf("%-9s %d (%.2f%%)", "accepted", s.Accepted, s.AcceptanceRate)),
		fmt.Sprintf("%-9s %d", "rejected", s.Rejected),
		fmt.Sprintf("%-9s %d", "no faces", s.NoFaces),
	}
	failed := fmt.Sprintf("%-9s %d", "failed", s.Failed)
	if s.Failed > 0 {
		failed = errorStyle.Render(failed)
	}
	rows = append(rows, failed)

	parts := []string{header, panelStyle.Render(strings.Join(rows, "\n"))}
	var problems []string
	for _, r := range s.Jobs {
		if r.Status == types.StateFailed {
			problems = append(problems, errorStyle.Render(r.Reference)+": "+r.Message)
		}
		for _, ce := range r.CopyErrors {
			problems = append(problems, warnStyle.Render(r.Reference)+": "+ce)
		}
	}
	if len(problems) > 0 {
		parts = append(parts, strings.Join(problems, "\n"))
	}
	parts = append(parts, mutedStyle.Render("report: "+reportPath))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderPresets(p quality.Presets) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("%-8s  %-14s  %-10s  %s", "preset", "min confidence", "max offset", "description"))}
	for _, name := range p.Names() {
		pr := p[name]
		lines = append(lines, fmt.Sprintf("%-8s  %-14s  %-10d  %s",
			name, strconv.FormatFloat(pr.MinConfidence, 'f', 1, 64), pr.MaxAbsOffset, mutedStyle.Render(pr.Description)))
	}
	return strings.Join(lines, "\n")
}

func renderAnalysis(s report.Summary, st report.Stats) string {
	header := titleStyle.Render("analysis "+s.RunID) + "\n" + mutedStyle.Render(thresholdsLine(s.Thresholds))

	rows := []string{
		fmt.Sprintf("%-16s %d of %d", "scored", st.Scored, s.Total),
		fmt.Sprintf("%-16s %d (%.2f%%)", "accepted", s.Accepted, s.AcceptanceRate),
	}
	if st.Scored > 0 {
		rows = append(rows,
			fmt.Sprintf("%-16s %.3f (min %.3f, max %.3f)", "avg confidence", st.AvgConfidence, st.MinConfidence, st.MaxConfidence),
			fmt.Sprintf("%-16s %.2f", "avg |offset|", st.AvgAbsOffset),
			fmt.Sprintf("%-16s high %d / medium %d / low %d", "confidence", st.High, st.Medium, st.Low),
		)
	}
	parts := []string{header, panelStyle.Render(strings.Join(rows, "\n"))}

	if st.Best != nil {
		parts = append(parts, fmt.Sprintf("best   %s (confidence %.3f)", st.Best.Reference, *st.Best.Confidence))
		parts = append(parts, fmt.Sprintf("worst  %s (confidence %.3f)", st.Worst.Reference, *st.Worst.Confidence))
	}
	if kinds := st.ReasonKinds(); len(kinds) > 0 {
		lines := []string{mutedStyle.Render("rejection reasons")}
		for _, k := range kinds {
			lines = append(lines, fmt.Sprintf("  %-16s %d", k, st.Reasons[k]))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	parts = append(parts, warnStyle.Render(report.Recommendation(s.AcceptanceRate)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderComparison(c report.Comparison) string {
	col := func(sd report.Side) string {
		return panelStyle.Render(strings.Join([]string{
			titleStyle.Render(sd.RunID),
			mutedStyle.Render(thresholdsLine(sd.Thresholds)),
			fmt.Sprintf("accepted        %d of %d", sd.Accepted, sd.Total),
			fmt.Sprintf("acceptance      %.2f%%", sd.AcceptanceRate),
			fmt.Sprintf("avg confidence  %.3f", sd.AvgConfidence),
			fmt.Sprintf("avg |offset|    %.2f", sd.AvgAbsOffset),
		}, "\n"))
	}
	sides := lipgloss.JoinHorizontal(lipgloss.Top, col(c.A), " ", col(c.B))

	deltas := []string{
		fmt.Sprintf("accepted        %+d", c.AcceptedDelta),
		fmt.Sprintf("acceptance      %+.2f%%", c.RateDelta),
		fmt.Sprintf("avg confidence  %+.3f", c.ConfidenceDelta),
		fmt.Sprintf("avg |offset|    %+.2f", c.AbsOffsetDelta),
	}
	parts := []string{sides, strings.Join(deltas, "\n")}
	if len(c.OnlyA) > 0 {
		parts = append(parts, mutedStyle.Render("accepted only in a: ")+strings.Join(c.OnlyA, ", "))
	}
	if len(c.OnlyB) > 0 {
		parts = append(parts, mutedStyle.Render("accepted only in b: ")+strings.Join(c.OnlyB, ", "))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderInfo(info types.MediaInfo) string {
	rows := []string{
		fmt.Sprintf("%-9s %s", "format", info.Format),
		fmt.Sprintf("%-9s %.3fs", "duration", info.Duration),
	}
	if info.BitRate > 0 {
		rows = append(rows, fmt.Sprintf("%-9s %d kb/s", "bitrate", info.BitRate/1000))
	}
	if v := info.Video; v != nil {
		rows = append(rows, fmt.Sprintf("%-9s #%d %s %dx%d @ %s", "video", v.Index, v.Codec, v.Width, v.Height, v.FrameRate))
	} else {
		rows = append(rows, warnStyle.Render(fmt.Sprintf("%-9s none", "video")))
	}
	if au := info.Audio; au != nil {
		rows = append(rows, fmt.Sprintf("%-9s #%d %s %d Hz, %d ch", "audio", au.Index, au.Codec, au.SampleRate, au.Channels))
	} else {
		rows = append(rows, warnStyle.Render(fmt.Sprintf("%-9s none", "audio")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(info.Path), panelStyle.Render(strings.Join(rows, "\n")))
}

func renderPrepared(results []organize.PrepareResult) string {
	lines := []string{titleStyle.Render("prepared")}
	var ok, total int
	for _, r := range results {
		total += len(r.Results)
		ok += r.Succeeded()
		line := fmt.Sprintf("%-24s %d/%d", r.Reference, r.Succeeded(), len(r.Results))
		if r.Succeeded() < len(r.Results) {
			line = warnStyle.Render(line)
		}
		lines = append(lines, line)
		for _, f := range organize.Failed(r.Results) {
			lines = append(lines, mutedStyle.Render("  "+f.Err.Error()))
		}
	}
	lines = append(lines, fmt.Sprintf("%d of %d outputs written", ok, total))
	return strings.Join(lines, "\n")
}
