// Package render prints watchlist output for the command line, styled with
// lipgloss when stdout is a terminal and plain otherwise.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"golang.org/x/term"

	"github.com/watchdone/watchdone/internal/domain"
)

// Color palette
var (
	Amber     = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Width(5)

	MatchStyle = lipgloss.NewStyle().
			Foreground(Amber).
			Underline(true)
)

// Raw watch status characters (unstyled)
const (
	PendingChar = "●"
	StartedChar = "◐"
	WatchedChar = "✓"
)

var (
	PendingStyle = lipgloss.NewStyle().Foreground(Amber)
	StartedStyle = lipgloss.NewStyle().Foreground(Amber)
	WatchedStyle = lipgloss.NewStyle().Foreground(Green)
)

const defaultWidth = 80

// Printer writes formatted output
type Printer struct {
	w      io.Writer
	styled bool
	width  int
}

// New prints to f, styled when f is a terminal.
func New(f *os.File) *Printer {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return NewPlain(f)
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	return &Printer{w: f, styled: true, width: width}
}

// NewPlain prints unstyled output to w.
func NewPlain(w io.Writer) *Printer {
	return &Printer{w: w, width: defaultWidth}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func badge(t domain.MediaType) string {
	switch t {
	case domain.MediaTypeMovie:
		return "MOV"
	case domain.MediaTypeShow:
		return "SHOW"
	default:
		return "?"
	}
}

func (p *Printer) status(rec domain.MediaRecord) string {
	switch rec.WatchState() {
	case domain.WatchStateWatched:
		return p.render(WatchedStyle, WatchedChar)
	case domain.WatchStateStarted:
		return p.render(StartedStyle, StartedChar)
	default:
		return p.render(PendingStyle, PendingChar)
	}
}

// Truncate shortens s to width runes, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func displayTitle(rec domain.MediaRecord) string {
	title := rec.Title
	if title == "" {
		title = fmt.Sprintf("#%d", rec.ID)
	}
	return title
}

func (p *Printer) line(rec domain.MediaRecord, title string) {
	var b strings.Builder
	b.WriteString(p.status(rec))
	b.WriteString(" ")
	if p.styled {
		b.WriteString(BadgeStyle.Render(badge(rec.MediaType)))
	} else {
		fmt.Fprintf(&b, "%-5s", badge(rec.MediaType))
	}
	b.WriteString(title)
	if y := rec.Year(); y > 0 {
		b.WriteString(p.render(DimStyle, fmt.Sprintf(" (%d)", y)))
	}
	if n := rec.WatchedCount(); n > 0 && !rec.Watched() {
		b.WriteString(p.render(DimStyle, fmt.Sprintf("  %d ep", n)))
	}
	fmt.Fprintln(p.w, b.String())
}

// Page prints one page of the watchlist under a numbered header.
func (p *Printer) Page(n int, page domain.Page) {
	header := fmt.Sprintf("Page %d (%s, %d items)", n, page.Source, len(page.Items))
	fmt.Fprintln(p.w, p.render(HeaderStyle, header))
	for _, rec := range page.Items {
		p.line(rec, p.render(TitleStyle, Truncate(displayTitle(rec), p.width-20)))
	}
}

// Search prints records with the characters matching query highlighted.
func (p *Printer) Search(query string, records []domain.MediaRecord) {
	if len(records) == 0 {
		fmt.Fprintln(p.w, p.render(DimStyle, "no matches"))
		return
	}
	for _, rec := range records {
		title := Truncate(displayTitle(rec), p.width-20)
		p.line(rec, p.highlight(title, MatchIndexes(query, title)))
	}
}

// MatchIndexes returns the byte offsets of title matched by query.
func MatchIndexes(query, title string) []int {
	matches := fuzzy.Find(strings.ToLower(query), []string{strings.ToLower(title)})
	if len(matches) == 0 {
		return nil
	}
	return matches[0].MatchedIndexes
}

func (p *Printer) highlight(title string, indexes []int) string {
	if !p.styled || len(indexes) == 0 {
		return title
	}
	matched := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		matched[i] = true
	}
	var b strings.Builder
	for i, r := range title {
		if matched[i] {
			b.WriteString(MatchStyle.Render(string(r)))
		} else {
			b.WriteString(TitleStyle.Render(string(r)))
		}
	}
	return b.String()
}

// Info prints every field of a record.
func (p *Printer) Info(rec domain.MediaRecord) {
	fmt.Fprintln(p.w, p.render(HeaderStyle, displayTitle(rec)))
	rows := [][2]string{
		{"id", fmt.Sprint(rec.ID)},
		{"type", rec.MediaType.String()},
		{"released", rec.ReleaseDate},
		{"status", rec.WatchState().String()},
	}
	if n := rec.WatchedCount(); n > 0 {
		rows = append(rows, [2]string{"episodes", strings.Join(rec.WatchedEpisodes, ", ")})
	}
	if rec.Rating != nil {
		rows = append(rows, [2]string{"rating", fmt.Sprintf("%.1f", *rec.Rating)})
	}
	if !rec.AddedAt.IsZero() {
		rows = append(rows, [2]string{"added", rec.AddedAt.Local().Format("2006-01-02 15:04")})
	}
	for _, row := range rows {
		fmt.Fprintf(p.w, "  %s %s\n", p.render(DimStyle, fmt.Sprintf("%-9s", row[0])), row[1])
	}
}

// Message prints an informational line.
func (p *Printer) Message(format string, args ...any) {
	fmt.Fprintln(p.w, fmt.Sprintf(format, args...))
}

// Error prints err in the error style.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.render(ErrorStyle, "error: "+err.Error()))
}
