package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/malei-pku/exposure-render/internal/buffer"
)

// Element is the set of element types the renderers can print.
type Element interface {
	~uint32 | ~int32 | ~float32 | ~float64
}

// Options controls grid and dump rendering.
type Options struct {
	Color     bool
	Style     string // chroma style for JSON dumps
	CellWidth int
}

// DefaultOptions returns colored output with the monokai style.
func DefaultOptions() Options {
	return Options{Color: true, Style: "monokai", CellWidth: 10}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE"))

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4FF"))

	zeroStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Italic(true)
)

// FormatValue prints a single element.
func FormatValue[T Element](v T) string {
	switch x := any(v).(type) {
	case float32:
		return strconv.FormatFloat(float64(x), 'g', 6, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', 6, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Grid renders the elements of b as a table with row and column indices.
// Buffers outside host memory are read back first.
func Grid[T Element](b *buffer.Buffer2D[T], opts Options) (string, error) {
	values, err := b.Snapshot()
	if err != nil {
		return "", err
	}
	return GridValues(b.FullName(), b.Resolution(), values, opts), nil
}

// GridValues renders values laid out row-major at res.
func GridValues[T Element](title string, res buffer.Resolution, values []T, opts Options) string {
	width := max(opts.CellWidth, 1)
	style := func(s lipgloss.Style) lipgloss.Style {
		if !opts.Color {
			return lipgloss.NewStyle()
		}
		return s
	}
	cell := func(s string) string {
		if len(s) > width {
			s = s[:width-1] + "~"
		}
		return fmt.Sprintf("%*s", width, s)
	}

	var sb strings.Builder
	sb.WriteString(style(titleStyle).Render(title))
	sb.WriteString("\n")

	if res.IsEmpty() || len(values) < res.Elements() {
		sb.WriteString(style(infoStyle).Render("(empty)"))
		sb.WriteString("\n")
		return sb.String()
	}

	rowLabel := len(strconv.Itoa(res.Height - 1))

	header := make([]string, 0, res.Width+1)
	header = append(header, strings.Repeat(" ", rowLabel))
	for x := 0; x < res.Width; x++ {
		header = append(header, cell(strconv.Itoa(x)))
	}
	sb.WriteString(style(axisStyle).Render(strings.Join(header, " ")))
	sb.WriteString("\n")

	for y := 0; y < res.Height; y++ {
		sb.WriteString(style(axisStyle).Render(fmt.Sprintf("%*d", rowLabel, y)))
		for x := 0; x < res.Width; x++ {
			v := values[y*res.Width+x]
			s := style(cellStyle)
			if v == 0 {
				s = style(zeroStyle)
			}
			sb.WriteString(" ")
			sb.WriteString(s.Render(cell(FormatValue(v))))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Summary is a one-line description of a buffer's state.
func Summary[T any](b *buffer.Buffer2D[T]) string {
	return fmt.Sprintf("%s: %d elements, %d bytes, dirty=%t",
		b.FullName(), b.ElementCount(), b.ByteCount(), b.Dirty())
}
