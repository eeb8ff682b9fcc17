package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type textOp struct {
	page  int
	x, y  float64
	text  string
	style string
	size  float64
	color Color
}

type rectOp struct {
	page       int
	x, y, w, h float64
	fill       Color
}

// recordCanvas records drawing calls instead of producing a PDF.
type recordCanvas struct {
	pages     int
	page      int
	style     string
	size      float64
	textColor Color
	fillColor Color
	texts     []textOp
	rects     []rectOp
	links     []string
	outputErr error
}

func newRecordCanvas(string) Canvas { return &recordCanvas{} }

func (c *recordCanvas) AddPage() {
	c.pages++
	c.page = c.pages
}

func (c *recordCanvas) PageCount() int { return c.pages }
func (c *recordCanvas) SetPage(n int)  { c.page = n }

func (c *recordCanvas) SetFont(style string, size float64) {
	c.style, c.size = style, size
}

func (c *recordCanvas) SetTextColor(col Color) { c.textColor = col }
func (c *recordCanvas) SetFillColor(col Color) { c.fillColor = col }

func (c *recordCanvas) Rect(x, y, w, h float64) {
	c.rects = append(c.rects, rectOp{page: c.page, x: x, y: y, w: w, h: h, fill: c.fillColor})
}

func (c *recordCanvas) Text(x, y float64, s string) {
	c.texts = append(c.texts, textOp{page: c.page, x: x, y: y, text: s, style: c.style, size: c.size, color: c.textColor})
}

// TextWidth approximates Helvetica at roughly half an em per character.
func (c *recordCanvas) TextWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * c.size * ptToMM * 0.5
}

func (c *recordCanvas) Link(_, _, _, _ float64, url string) {
	c.links = append(c.links, url)
}

func (c *recordCanvas) Output(w io.Writer) error {
	if c.outputErr != nil {
		return c.outputErr
	}
	for _, t := range c.texts {
		if _, err := fmt.Fprintf(w, "%d|%s\n", t.page, t.text); err != nil {
			return err
		}
	}
	return nil
}

func (c *recordCanvas) allText() string {
	lines := make([]string, len(c.texts))
	for i, t := range c.texts {
		lines[i] = t.text
	}
	return strings.Join(lines, "\n")
}

func (c *recordCanvas) has(text string) bool {
	for _, t := range c.texts {
		if t.text == text {
			return true
		}
	}
	return false
}

func (c *recordCanvas) find(text string) (textOp, bool) {
	for _, t := range c.texts {
		if t.text == text {
			return t, true
		}
	}
	return textOp{}, false
}

// blockFill returns the fill of the metric block whose label is label.
func (c *recordCanvas) blockFill(label string) (Color, bool) {
	t, ok := c.find(strings.ToUpper(label))
	if !ok {
		return Color{}, false
	}
	for _, r := range c.rects {
		if r.page == t.page && r.h == blockHeight && t.x >= r.x && t.x <= r.x+r.w && t.y >= r.y && t.y <= r.y+r.h {
			return r.fill, true
		}
	}
	return Color{}, false
}

var errOutput = errors.New("disk full")
