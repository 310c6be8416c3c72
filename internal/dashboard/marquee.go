package dashboard

import "strings"

// marqueeGap separates repetitions of the title.
const marqueeGap = "     "

// Marquee scrolls a line of text leftwards across a fixed width.
type Marquee struct {
	text   []rune
	offset int
	speed  int
}

// NewMarquee creates a marquee moving speed columns per Advance.
func NewMarquee(text string, speed int) *Marquee {
	if speed < 0 {
		speed = 0
	}
	return &Marquee{text: []rune(text + marqueeGap), speed: speed}
}

// Advance moves the text by one step.
func (m *Marquee) Advance() {
	if len(m.text) == 0 {
		return
	}
	m.offset = (m.offset + m.speed) % len(m.text)
}

// Offset returns the current scroll position.
func (m *Marquee) Offset() int {
	return m.offset
}

// Render returns exactly width columns of the scrolling text.
func (m *Marquee) Render(width int) string {
	if width <= 0 || len(m.text) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(width)
	for i := 0; i < width; i++ {
		b.WriteRune(m.text[(m.offset+i)%len(m.text)])
	}
	return b.String()
}
