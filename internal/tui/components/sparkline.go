package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline draws one row of block characters scaled to the largest value.
type Sparkline struct {
	Data  []uint64
	Max   uint64
	Style lipgloss.Style
	Label string
}

func NewSparkline(label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Label: label,
		Style: style,
	}
}

// Set replaces the plotted values.
func (s *Sparkline) Set(data []uint64) {
	s.Data = append(s.Data[:0], data...)
	s.Max = 0
	for _, v := range s.Data {
		s.Max = max(s.Max, v)
	}
}

// Graph is the bare block string. A zero value maps to a blank; any
// non-zero value gets at least the lowest block.
func (s Sparkline) Graph() string {
	var graph strings.Builder
	for _, v := range s.Data {
		if s.Max == 0 || v == 0 {
			graph.WriteString(levels[0])
			continue
		}
		idx := 1 + int(float64(v)/float64(s.Max)*float64(len(levels)-2))
		graph.WriteString(levels[min(idx, len(levels)-1)])
	}
	return graph.String()
}

func (s Sparkline) View() string {
	if len(s.Data) == 0 {
		return ""
	}
	out := strings.Builder{}
	out.WriteString(s.Style.Render(s.Label))
	out.WriteString("\n")
	out.WriteString(s.Style.Render(s.Graph()))
	out.WriteString(" ")
	out.WriteString(lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("max %d", s.Max)))
	return out.String()
}
