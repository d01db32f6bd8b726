package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stn/internal/models"
)

// Theme is a named palette
type Theme struct {
	Name string

	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
}

var themes = map[string]Theme{
	"tokyo-night": {
		Name:          "Tokyo Night",
		Background:    "#1a1b26",
		Foreground:    "#c0caf5",
		ForegroundDim: "#565f89",
		Primary:       "#7aa2f7",
		Secondary:     "#bb9af7",
		Accent:        "#7dcfff",
		Success:       "#9ece6a",
		Warning:       "#e0af68",
		Error:         "#f7768e",
		Info:          "#7aa2f7",
		Border:        "#3b4261",
		BorderFocus:   "#7aa2f7",
		Selection:     "#33467c",
	},
	"paper": {
		Name:          "Paper",
		Background:    "#fafafa",
		Foreground:    "#24292f",
		ForegroundDim: "#8c959f",
		Primary:       "#0969da",
		Secondary:     "#8250df",
		Accent:        "#1b7c83",
		Success:       "#1a7f37",
		Warning:       "#9a6700",
		Error:         "#cf222e",
		Info:          "#0969da",
		Border:        "#d0d7de",
		BorderFocus:   "#0969da",
		Selection:     "#ddf4ff",
	},
}

// DefaultTheme is used when the configuration names none
const DefaultTheme = "tokyo-night"

// Current is the palette the styles are built from
var Current = themes[DefaultTheme]

// Use switches the palette. Styles created before keep the old colors.
func Use(name string) bool {
	t, ok := themes[name]
	if ok {
		Current = t
	}
	return ok
}

// Themes lists the known theme names
func Themes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const (
	// MaxWidth caps the workspace on wide terminals
	MaxWidth = 140
	// FormWidth caps centered forms and dialogs
	FormWidth = 80
	// SidebarWidth is the width of the note tree
	SidebarWidth = 32
)

func ContentWidth(terminalWidth int) int {
	return min(terminalWidth, MaxWidth)
}

// CenterView centers content horizontally once the terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Center, lipgloss.Top, content)
}

// Dialog centers a form or popup in the terminal
func Dialog(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= 0 || terminalHeight <= 0 {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Center, lipgloss.Center, content)
}

// Styles are built once per view from the current theme
type Styles struct {
	TitleBar   lipgloss.Style
	Title      lipgloss.Style
	TitleMuted lipgloss.Style

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	FilterBar lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonPrimary lipgloss.Style

	Tag lipgloss.Style

	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	Section      lipgloss.Style

	// Sidebar tree and gestures
	TreeItem     lipgloss.Style
	TreeSelected lipgloss.Style
	DragSource   lipgloss.Style
	DropTarget   lipgloss.Style

	NoteTitle lipgloss.Style
	Label     lipgloss.Style
	Priority  lipgloss.Style

	// Board
	Column        lipgloss.Style
	ColumnFocused lipgloss.Style
	Card          lipgloss.Style
	CardSelected  lipgloss.Style

	Input        lipgloss.Style
	InputFocused lipgloss.Style

	Help    lipgloss.Style
	HelpKey lipgloss.Style

	StatusBar  lipgloss.Style
	Toast      lipgloss.Style
	ToastError lipgloss.Style
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func boxed(b lipgloss.Border, c lipgloss.Color, padX int) lipgloss.Style {
	return lipgloss.NewStyle().Border(b).BorderForeground(c).Padding(0, padX)
}

func highlighted(t Theme) lipgloss.Style {
	return fg(t.Primary).Background(t.Selection).Bold(true)
}

func NewStyles() *Styles {
	t := Current
	round := lipgloss.RoundedBorder()
	line := lipgloss.NormalBorder()

	return &Styles{
		TitleBar:   fg(t.Foreground).Background(t.Background).Padding(0, 1).Bold(true),
		Title:      fg(t.Primary).Bold(true),
		TitleMuted: fg(t.ForegroundDim),

		ListItem:     fg(t.Foreground).Padding(0, 2),
		ListSelected: highlighted(t).Padding(0, 2),

		FilterBar: boxed(round, t.Border, 1),

		Button:        boxed(round, t.Border, 2).Foreground(t.Foreground),
		ButtonFocused: boxed(round, t.BorderFocus, 2).Foreground(t.Primary).Bold(true),
		ButtonPrimary: fg(t.Background).Background(t.Primary).Padding(0, 2).Bold(true),

		Tag: lipgloss.NewStyle().Padding(0, 1).MarginRight(1),

		Panel:        boxed(round, t.Border, 1),
		PanelFocused: boxed(round, t.BorderFocus, 1),
		Section:      fg(t.Secondary).Bold(true),

		TreeItem:     fg(t.Foreground),
		TreeSelected: highlighted(t),
		DragSource:   fg(t.Warning).Italic(true),
		DropTarget:   fg(t.Background).Background(t.Accent).Bold(true),

		NoteTitle: fg(t.Foreground).Bold(true),
		Label:     fg(t.ForegroundDim),
		Priority:  fg(t.Warning).Bold(true),

		Column:        boxed(line, t.Border, 1),
		ColumnFocused: boxed(line, t.BorderFocus, 1),
		Card:          fg(t.Foreground),
		CardSelected:  highlighted(t),

		Input:        boxed(round, t.Border, 1).Foreground(t.Foreground),
		InputFocused: boxed(round, t.BorderFocus, 1).Foreground(t.Foreground),

		Help:    fg(t.ForegroundDim).Padding(1, 2),
		HelpKey: fg(t.Primary).Bold(true),

		StatusBar:  fg(t.ForegroundDim).Padding(0, 1),
		Toast:      fg(t.Success).Padding(0, 1),
		ToastError: fg(t.Error).Bold(true).Padding(0, 1),
	}
}

// StatusColor colors a status badge or board column
func StatusColor(s models.NoteStatus) lipgloss.Color {
	switch s {
	case models.StatusInProgress:
		return Current.Warning
	case models.StatusDone:
		return Current.Success
	}
	return Current.ForegroundDim
}

func PriorityColor(p *models.NotePriority) lipgloss.Color {
	if p == nil {
		return Current.ForegroundDim
	}
	switch *p {
	case models.PriorityHigh:
		return Current.Error
	case models.PriorityMedium:
		return Current.Warning
	}
	return Current.Info
}

// TagColor falls back to the accent for tags without a color
func TagColor(t models.Tag) lipgloss.Color {
	if t.Color == "" {
		return Current.Accent
	}
	return lipgloss.Color(t.Color)
}
