// Package cli renders board positions and candidate tables for the terminal.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/generics"
	"github.com/sente-go/sente/internal/search"
)

const columnLetters = "ABCDEFGHJKLMNOPQRST" // GTP-style, no I

var (
	blackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Bold(true)
	whiteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	gridStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("94"))
	lastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// UI writes renderings to an output stream, optionally with color.
type UI struct {
	out   io.Writer
	color bool
}

// New returns a UI writing to out. With color false every style is stripped.
func New(out io.Writer, color bool) *UI {
	return &UI{out: out, color: color}
}

func (ui *UI) render(style lipgloss.Style, s string) string {
	if !ui.color {
		return s
	}
	return style.Render(s)
}

// starPoints returns the hoshi for the given board size.
func starPoints(size int) map[[2]int]bool {
	pts := make(map[[2]int]bool)
	var coords []int
	switch {
	case size >= 13:
		coords = []int{3, size / 2, size - 4}
	case size >= 9:
		coords = []int{2, size / 2, size - 3}
	default:
		return pts
	}
	for _, x := range coords {
		for _, y := range coords {
			pts[[2]int{x, y}] = true
		}
	}
	return pts
}

// PrintBoard renders the position with coordinates, marking the last move of
// each side.
func (ui *UI) PrintBoard(b *board.Board) {
	last := make(map[board.Pos]bool)
	for _, color := range [2]board.Color{board.Black, board.White} {
		if moves := b.GetHistories(color); len(moves) > 0 {
			last[moves[0]] = true
		}
	}
	stars := starPoints(b.Width())

	var sb strings.Builder
	for y := b.Height() - 1; y >= 0; y-- {
		fmt.Fprintf(&sb, "%2d ", y+1)
		for x := 0; x < b.Width(); x++ {
			var cell string
			switch b.GetColor(x, y) {
			case board.Black:
				style := blackStyle
				if last[board.Pos{int8(x), int8(y)}] {
					style = lastStyle
				}
				cell = ui.render(style, "X")
			case board.White:
				style := whiteStyle
				if last[board.Pos{int8(x), int8(y)}] {
					style = lastStyle
				}
				cell = ui.render(style, "O")
			default:
				point := "."
				if stars[[2]int{x, y}] {
					point = "+"
				}
				cell = ui.render(gridStyle, point)
			}
			sb.WriteString(cell)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   ")
	for x := 0; x < b.Width(); x++ {
		sb.WriteByte(columnLetters[x])
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	fmt.Fprint(ui.out, sb.String())
}

// FormatPos renders a position in GTP style ("D4", "pass").
func FormatPos(p board.Pos) string {
	if p.IsPass() {
		return "pass"
	}
	return fmt.Sprintf("%c%d", columnLetters[p.X()], p.Y()+1)
}

// PrintCandidates renders the candidate table, one row per move with its
// statistics and principal variation.
func (ui *UI) PrintCandidates(candidates []search.Candidate) {
	fmt.Fprintln(ui.out, ui.render(headStyle, "move     visits  playouts   policy    value  variation"))
	for _, c := range candidates {
		variation := strings.Join(generics.SliceMap(c.Variations, FormatPos), " ")
		fmt.Fprintf(ui.out, "%-6s %8d %9d %8.3f %8.3f  %s\n",
			FormatPos(c.Pos), c.Visits, c.Playouts, c.Policy, c.Value, variation)
	}
}
