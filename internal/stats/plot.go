package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Chart describes a daily bar chart with an optional overlay line, drawn
// with braille cells on a shared absolute scale.
type Chart struct {
	Title       string
	Unit        string
	Bars        []float64
	Overlay     []float64
	BarName     string
	OverlayName string
	StartLabel  string
	EndLabel    string
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisGap             = " │ "
	colorReset          = "\x1b[0m"
	barColor            = "\x1b[36m"
	overlayColor        = "\x1b[33m"
	terminalWidthBackup = 80
)

// PlotChart renders the chart. A width of 0 sizes the plot to the terminal.
func PlotChart(w io.Writer, c Chart, width, height int, forceColor bool) error {
	if len(c.Bars) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	labelWidth := yLabelWidth(c)
	if width <= 0 {
		width = PlotWidthFor(terminalWidth()) - labelWidth
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	bars := bucketValues(c.Bars, width)
	overlay := bucketValues(c.Overlay, width)
	top := scaleTop(c.Bars, c.Overlay)
	rows := height * 4

	barCells := makeCells(height, width)
	for x, v := range bars {
		if v <= 0 {
			continue
		}
		peak := valueToRow(v, top, rows)
		for y := rows - 1; y >= peak; y-- {
			setBrailleDot(barCells, x*2, y)
			setBrailleDot(barCells, x*2+1, y)
		}
	}
	lineCells := makeCells(height, width)
	prevX, prevY := -1, -1
	for x, v := range overlay {
		px, py := x*2+1, valueToRow(v, top, rows)
		if prevX >= 0 {
			drawLine(prevX, prevY, px, py, func(dx, dy int) {
				setBrailleDot(lineCells, dx, dy)
			})
		} else {
			setBrailleDot(lineCells, px, py)
		}
		prevX, prevY = px, py
	}

	useColor := shouldUseColor(w, forceColor)
	if c.Title != "" {
		if _, err := fmt.Fprintln(w, c.Title); err != nil {
			return err
		}
	}
	labels := yLabels(top, height, c.Unit)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(padCell(labels[y], labelWidth, true))
		row.WriteString(axisGap)
		for x := 0; x < width; x++ {
			row.WriteString(renderCell(barCells[y][x], lineCells[y][x], useColor))
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	indent := strings.Repeat(" ", labelWidth+displayWidth(axisGap))
	if c.StartLabel != "" || c.EndLabel != "" {
		gap := width - displayWidth(c.StartLabel) - displayWidth(c.EndLabel)
		if gap < 1 {
			gap = 1
		}
		if _, err := fmt.Fprintf(w, "%s%s%s%s\n", indent, c.StartLabel, strings.Repeat(" ", gap), c.EndLabel); err != nil {
			return err
		}
	}
	if len(c.Overlay) > 0 {
		legend := fmt.Sprintf("%s%c %s  %c %s", indent, brailleFromMask(0xFF), nonEmpty(c.BarName, "daily"), brailleFromMask(0x09), nonEmpty(c.OverlayName, "average"))
		if _, err := fmt.Fprintln(w, legend); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotWidthFor computes the plot width left after the axis gap.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - displayWidth(axisGap)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func renderCell(bar, line uint8, useColor bool) string {
	mask := bar | line
	ch := string(brailleFromMask(mask))
	if !useColor || mask == 0 {
		return ch
	}
	if line != 0 {
		return overlayColor + ch + colorReset
	}
	return barColor + ch + colorReset
}

func yLabelWidth(c Chart) int {
	top := scaleTop(c.Bars, c.Overlay)
	return displayWidth(formatAxisValue(top, c.Unit))
}

func yLabels(top float64, height int, unit string) []string {
	labels := make([]string, height)
	labels[0] = formatAxisValue(top, unit)
	if height > 2 {
		labels[height/2] = formatAxisValue(top/2, unit)
	}
	if height > 1 {
		labels[height-1] = formatAxisValue(0, unit)
	}
	return labels
}

func formatAxisValue(v float64, unit string) string {
	return fmt.Sprintf("%.0f%s", v, unit)
}

func scaleTop(groups ...[]float64) float64 {
	top := 0.0
	for _, values := range groups {
		for _, v := range values {
			if v > top {
				top = v
			}
		}
	}
	if top <= 0 {
		return 1
	}
	return math.Ceil(top)
}

// bucketValues maps values onto width columns, repeating points when there
// are fewer values than columns and averaging when there are more.
func bucketValues(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	n := len(values)
	for x := 0; x < width; x++ {
		start := x * n / width
		end := (x + 1) * n / width
		if end <= start {
			out[x] = values[start]
			continue
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[x] = sum / float64(end-start)
	}
	return out
}

func valueToRow(v, top float64, rows int) int {
	if rows <= 1 || top <= 0 {
		return 0
	}
	row := int(math.Round((1 - v/top) * float64(rows-1)))
	if row < 0 {
		return 0
	}
	if row >= rows {
		return rows - 1
	}
	return row
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Braille dot bits by [column][row] within a 2x4 cell.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if x < 0 || y < 0 {
		return
	}
	cy, cx := y/4, x/2
	if cy >= len(cells) || cx >= len(cells[cy]) {
		return
	}
	cells[cy][cx] |= brailleBits[x%2][y%4]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func nonEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
