package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

var (
	styleBase   = tcell.StyleDefault
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleOn     = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleOff    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHint   = tcell.StyleDefault.Dim(true)
	styleBorder = tcell.StyleDefault.Foreground(tcell.ColorTeal)
)

type rect struct {
	x, y, w, h int
}

func draw(s tcell.Screen, snap Snapshot) {
	s.Clear()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}

	mainPane := rect{0, 0, width, height}
	if snap.StatusOpen {
		mainPane.w = width / 2
		drawStatus(s, rect{mainPane.w, 0, width - mainPane.w, height}, snap)
	}
	drawMain(s, mainPane, snap)
}

func drawMain(s tcell.Screen, r rect, snap Snapshot) {
	box(s, r, snap.Title)

	toggle, toggleStyle := "[ ] off", styleOff
	if snap.ToggleOn {
		toggle, toggleStyle = "[x] on", styleOn
	}
	row := r.y + 2
	row = line(s, r, row, "Status window: ", styleBase, toggle, toggleStyle)
	row = line(s, r, row, "Producer:      ", styleBase, snap.ProducerState, styleBase)
	row = line(s, r, row, "Traces:        ", styleBase, fmt.Sprint(snap.Emitted), styleBase)
	line(s, r, row, "Shutdown:      ", styleBase, snap.ShutdownState, styleBase)

	text(s, r.x+2, r.y+r.h-2, r.w-4, "s status  x shutdown  q quit", styleHint)
}

func drawStatus(s tcell.Screen, r rect, snap Snapshot) {
	box(s, r, snap.StatusTitle)

	visible := r.h - 2
	lines := snap.Lines
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	for i, l := range lines {
		text(s, r.x+1, r.y+1+i, r.w-2, l, styleBase)
	}
}

func line(s tcell.Screen, r rect, row int, label string, ls tcell.Style, value string, vs tcell.Style) int {
	if row >= r.y+r.h-2 {
		return row
	}
	n := text(s, r.x+2, row, r.w-4, label, ls)
	text(s, r.x+2+n, row, r.w-4-n, value, vs)
	return row + 1
}

// text draws str clipped to limit cells and returns the cells used.
func text(s tcell.Screen, x, y, limit int, str string, style tcell.Style) int {
	n := 0
	for _, ch := range str {
		if n >= limit {
			break
		}
		s.SetContent(x+n, y, ch, nil, style)
		n++
	}
	return n
}

func box(s tcell.Screen, r rect, title string) {
	if r.w < 2 || r.h < 2 {
		return
	}
	right, bottom := r.x+r.w-1, r.y+r.h-1
	for x := r.x + 1; x < right; x++ {
		s.SetContent(x, r.y, tcell.RuneHLine, nil, styleBorder)
		s.SetContent(x, bottom, tcell.RuneHLine, nil, styleBorder)
	}
	for y := r.y + 1; y < bottom; y++ {
		s.SetContent(r.x, y, tcell.RuneVLine, nil, styleBorder)
		s.SetContent(right, y, tcell.RuneVLine, nil, styleBorder)
	}
	s.SetContent(r.x, r.y, tcell.RuneULCorner, nil, styleBorder)
	s.SetContent(right, r.y, tcell.RuneURCorner, nil, styleBorder)
	s.SetContent(r.x, bottom, tcell.RuneLLCorner, nil, styleBorder)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, styleBorder)

	if title != "" {
		text(s, r.x+2, r.y, r.w-4, " "+title+" ", styleTitle)
	}
}
