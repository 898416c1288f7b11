package scorm

import (
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Geometry sizes the drag and drop area of matching and cloze pages.
type Geometry struct {
	CellWidth  int
	CellHeight int
	Columns    int
	AreaWidth  int
	AreaHeight int
}

// cell widths by the length of the longest label.
var cellWidths = []struct {
	maxLen int
	width  int
}{
	{8, 96},
	{16, 160},
	{32, 256},
	{64, 384},
	{128, 512},
}

const (
	widestCell = 640
	charWidth  = 8
	lineHeight = 20
	cellPad    = 12
	cellGap    = 16
	areaWidth  = 720
)

func cellWidth(maxLen int) int {
	for _, c := range cellWidths {
		if maxLen <= c.maxLen {
			return c.width
		}
	}
	return widestCell
}

// layout places count cells whose longest label has maxLen runes.
func layout(count, maxLen int) Geometry {
	g := Geometry{CellWidth: cellWidth(maxLen)}
	lines := (maxLen*charWidth + g.CellWidth - 1) / g.CellWidth
	if lines < 1 {
		lines = 1
	}
	g.CellHeight = cellPad + lines*lineHeight
	g.Columns = areaWidth / (g.CellWidth + cellGap)
	if g.Columns < 1 {
		g.Columns = 1
	}
	if count > 0 && g.Columns > count {
		g.Columns = count
	}
	rows := 1
	if count > 0 {
		rows = (count + g.Columns - 1) / g.Columns
	}
	g.AreaWidth = g.Columns * (g.CellWidth + cellGap)
	g.AreaHeight = rows * (g.CellHeight + cellGap)
	return g
}

func longest(labels []string) int {
	n := 0
	for _, l := range labels {
		if c := utf8.RuneCountInString(l); c > n {
			n = c
		}
	}
	return n
}

// placement returns a random ordering of n keys.
func placement(n int, rnd *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

const maxSlugLen = 40

// descriptiveURL derives the readable part of a page file name: accents
// stripped, lower case ASCII letters and digits joined by dashes.
func descriptiveURL(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
			continue
		}
		dash = true
	}
	out := sb.String()
	if len(out) > maxSlugLen {
		out = strings.TrimRight(out[:maxSlugLen], "-")
	}
	if out == "" {
		return "question"
	}
	return out
}
