package report

import (
	"strings"
)

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	MarginTop    = 20.0
	MarginLeft   = 20.0
	ContentWidth = PageWidth - 2*MarginLeft
	BottomLimit  = PageHeight - MarginTop
	FooterY      = PageHeight - 10
)

// Font sizes in points.
const (
	sizeTitle   = 18.0
	sizeHeading = 13.0
	sizeSub     = 11.0
	sizeBody    = 10.0
	sizeSmall   = 8.0
)

const (
	ptToMM      = 0.3528
	lineSpacing = 1.45
	blockHeight = 18.0
	blockGap    = 5.0
	indent      = 5.0
)

var (
	colorBody  = Color{31, 41, 55}
	colorMuted = Color{107, 114, 128}
	colorLink  = Color{37, 99, 235}
	colorRule  = Color{203, 213, 225}
)

// lineHeight is the vertical advance for one line of text at size points.
func lineHeight(size float64) float64 {
	return size * ptToMM * lineSpacing
}

// layout writes top to bottom with a single forward cursor. Every writer
// reserves its full height through ensure before drawing, so a block is
// never split across pages and the cursor never moves back.
type layout struct {
	c Canvas
	y float64
}

func newLayout(c Canvas) *layout {
	c.AddPage()
	return &layout{c: c, y: MarginTop}
}

// ensure starts a new page when h more millimetres do not fit.
func (l *layout) ensure(h float64) {
	if l.y+h > BottomLimit {
		l.c.AddPage()
		l.y = MarginTop
	}
}

func (l *layout) space(h float64) {
	l.y += h
}

// line writes one line of text at x, reserving its height first.
func (l *layout) line(x float64, text, style string, size float64, col Color) {
	h := lineHeight(size)
	l.ensure(h)
	l.c.SetFont(style, size)
	l.c.SetTextColor(col)
	l.c.Text(x, l.y+size*ptToMM, text)
	l.y += h
}

// paragraph wraps text to the content width (less x offset) and writes it
// line by line.
func (l *layout) paragraph(x float64, text, style string, size float64, col Color) {
	l.c.SetFont(style, size)
	for _, ln := range l.wrap(text, ContentWidth-(x-MarginLeft)) {
		l.line(x, ln, style, size, col)
	}
}

func (l *layout) title(text string) {
	l.line(MarginLeft, text, StyleBold, sizeTitle, colorBody)
}

// heading starts a section. The heading and its first body line are kept
// together.
func (l *layout) heading(text string) {
	l.space(4)
	l.ensure(lineHeight(sizeHeading) + 2 + lineHeight(sizeBody))
	l.line(MarginLeft, text, StyleBold, sizeHeading, colorBody)
	l.rule()
}

func (l *layout) subheading(text string) {
	l.space(1.5)
	l.ensure(lineHeight(sizeSub) + lineHeight(sizeBody))
	l.line(MarginLeft, text, StyleBold, sizeSub, colorBody)
}

func (l *layout) rule() {
	l.ensure(2)
	l.c.SetFillColor(colorRule)
	l.c.Rect(MarginLeft, l.y, ContentWidth, 0.3)
	l.y += 2
}

// keyValue writes "label: value" with the value wrapped beside the label.
func (l *layout) keyValue(label, value string) {
	const labelWidth = 40.0
	l.c.SetFont(StyleRegular, sizeBody)
	lines := l.wrap(value, ContentWidth-labelWidth)
	for i, ln := range lines {
		h := lineHeight(sizeBody)
		l.ensure(h)
		if i == 0 {
			l.c.SetFont(StyleBold, sizeBody)
			l.c.SetTextColor(colorMuted)
			l.c.Text(MarginLeft, l.y+sizeBody*ptToMM, label)
		}
		l.c.SetFont(StyleRegular, sizeBody)
		l.c.SetTextColor(colorBody)
		l.c.Text(MarginLeft+labelWidth, l.y+sizeBody*ptToMM, ln)
		l.y += h
	}
}

// bullet writes a wrapped list item.
func (l *layout) bullet(text string, col Color) {
	l.c.SetFont(StyleRegular, sizeBody)
	lines := l.wrap(text, ContentWidth-2*indent)
	for i, ln := range lines {
		h := lineHeight(sizeBody)
		l.ensure(h)
		l.c.SetFont(StyleRegular, sizeBody)
		l.c.SetTextColor(col)
		if i == 0 {
			l.c.Text(MarginLeft+indent/2, l.y+sizeBody*ptToMM, "-")
		}
		l.c.Text(MarginLeft+2*indent, l.y+sizeBody*ptToMM, ln)
		l.y += h
	}
}

// metric is one coloured block.
type metric struct {
	label string
	value string
	tone  Tone
}

// blocks writes metrics two per row.
func (l *layout) blocks(ms []metric) {
	w := (ContentWidth - blockGap) / 2
	for i := 0; i < len(ms); i += 2 {
		l.ensure(blockHeight)
		for j := 0; j < 2 && i+j < len(ms); j++ {
			l.block(MarginLeft+float64(j)*(w+blockGap), w, ms[i+j])
		}
		l.y += blockHeight + 3
	}
}

func (l *layout) block(x, w float64, m metric) {
	l.c.SetFillColor(m.tone.Bg)
	l.c.Rect(x, l.y, w, blockHeight)

	l.c.SetFont(StyleRegular, sizeSmall)
	l.c.SetTextColor(m.tone.Text)
	l.c.Text(x+3, l.y+5.5, strings.ToUpper(m.label))

	l.c.SetFont(StyleBold, sizeHeading)
	l.c.Text(x+3, l.y+13.5, l.fit(m.value, w-6))
}

// link writes a clickable URL on its own line.
func (l *layout) link(x float64, url string) {
	h := lineHeight(sizeSmall)
	l.ensure(h)
	l.c.SetFont(StyleRegular, sizeSmall)
	l.c.SetTextColor(colorLink)
	text := l.fit(url, ContentWidth-(x-MarginLeft))
	l.c.Text(x, l.y+sizeSmall*ptToMM, text)
	l.c.Link(x, l.y, l.c.TextWidth(text), h, url)
	l.y += h
}

// wrap breaks text into lines no wider than width using the current font.
// Words longer than a line are split. Explicit newlines are kept.
func (l *layout) wrap(text string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		cur := ""
		for _, w := range words {
			cand := w
			if cur != "" {
				cand = cur + " " + w
			}
			if l.c.TextWidth(cand) <= width {
				cur = cand
				continue
			}
			if cur != "" {
				lines = append(lines, cur)
			}
			for l.c.TextWidth(w) > width {
				head, tail := l.splitAt(w, width)
				lines = append(lines, head)
				w = tail
			}
			cur = w
		}
		if cur != "" {
			lines = append(lines, cur)
		}
	}
	return lines
}

// splitAt returns the longest prefix of w that fits width (at least one
// rune) and the remainder.
func (l *layout) splitAt(w string, width float64) (string, string) {
	runes := []rune(w)
	n := 1
	for n < len(runes) && l.c.TextWidth(string(runes[:n+1])) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// fit truncates text with an ellipsis so it fits width.
func (l *layout) fit(text string, width float64) string {
	if l.c.TextWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 1 && l.c.TextWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
