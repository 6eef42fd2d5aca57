package textengine

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/justyntemme/jianyue/internal/epub"
	"github.com/justyntemme/jianyue/pkg/models"
)

const (
	columnGap    = 4
	spreadWidth  = 100 // auto spread shows two columns from this width up
	minWrapWidth = 20
)

// line is one wrapped row of a section. start is the row's character
// offset inside its block's text.
type line struct {
	text    string
	block   int
	start   int
	heading bool
}

// geometry is the page shape derived from the viewport and display settings
type geometry struct {
	columns  int
	colWidth int
	height   int
	wrap     int
}

func (g geometry) pageSize() int {
	return g.columns * g.height
}

func computeGeometry(width, height, fontPercent int, spread models.SpreadMode) geometry {
	if width < minWrapWidth {
		width = minWrapWidth
	}
	if height < 1 {
		height = 1
	}
	cols := 1
	if spread == models.SpreadAlways || (spread == models.SpreadAuto && width >= spreadWidth) {
		cols = 2
	}
	colWidth := (width - columnGap*(cols-1)) / cols

	// larger text leaves fewer characters per row
	if fontPercent <= 0 {
		fontPercent = models.DefaultFontSize
	}
	wrap := colWidth * 100 / fontPercent
	if wrap < minWrapWidth {
		wrap = minWrapWidth
	}
	if wrap > colWidth {
		wrap = colWidth
	}
	return geometry{columns: cols, colWidth: colWidth, height: height, wrap: wrap}
}

// layoutDocument wraps every block of doc. Blocks are separated by an empty
// row when the theme asks for airy line spacing.
func layoutDocument(doc *epub.Document, wrap int, spaced bool) []line {
	var lines []line
	for i, b := range doc.Blocks {
		if spaced && i > 0 {
			lines = append(lines, line{block: i})
		}
		start := 0
		for _, row := range strings.Split(wordwrap.String(b.Text, wrap), "\n") {
			lines = append(lines, line{text: row, block: i, start: start, heading: b.Heading})
			start += len(row) + 1
		}
	}
	return lines
}

// firstLineOf returns the first text row of block, skipping its leading spacer
func firstLineOf(lines []line, block int) int {
	for i, l := range lines {
		if l.block >= block && l.text != "" {
			return i
		}
	}
	return 0
}

// rowFor returns the row of block holding character offset char
func rowFor(lines []line, block, char int) int {
	row := firstLineOf(lines, block)
	for i := row + 1; i < len(lines) && lines[i].block == block; i++ {
		if lines[i].start > char {
			break
		}
		row = i
	}
	return row
}

// anchorAt returns the block and character offset shown on row i. A spacer
// row belongs to the block that follows it.
func anchorAt(lines []line, i int) (block, char int) {
	if i < 0 || i >= len(lines) {
		return 0, 0
	}
	return lines[i].block, lines[i].start
}
