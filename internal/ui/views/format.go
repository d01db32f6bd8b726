package views

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// truncate cuts s to width cells, marking the cut with an ellipsis
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

const dueLayout = "2006-01-02"

// parseDue reads a due date typed by the user. An empty value clears it.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dueLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(time.Local).Format(dueLayout)
}

// nextPriority cycles none, low, medium, high and back to none
func nextPriority(p *models.NotePriority) *models.NotePriority {
	if p == nil {
		low := models.PriorityLow
		return &low
	}
	if *p == models.PriorityHigh {
		return nil
	}
	next := p.Next()
	return &next
}

func priorityLabel(p *models.NotePriority) string {
	if p == nil || *p == "" {
		return "No priority"
	}
	s := string(*p)
	return s[:1] + strings.ToLower(s[1:])
}

func statusBadge(s models.NoteStatus) string {
	return lipgloss.NewStyle().Foreground(styles.StatusColor(s)).Render("● " + s.Label())
}

func priorityBadge(p *models.NotePriority) string {
	return lipgloss.NewStyle().Foreground(styles.PriorityColor(p)).Render("▲ " + priorityLabel(p))
}

// tagChips renders the tags with the given ids in the order of tags
func tagChips(tags []models.Tag, ids []string) string {
	var out []string
	for _, t := range tags {
		for _, id := range ids {
			if t.ID == id {
				out = append(out, lipgloss.NewStyle().Foreground(styles.TagColor(t)).Render("#"+t.Name))
				break
			}
		}
	}
	return strings.Join(out, " ")
}
