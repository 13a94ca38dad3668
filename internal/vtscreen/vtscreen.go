// Package vtscreen implements a scoped-down virtual terminal screen buffer:
// a cell grid with a cursor, basic SGR attributes, line wrapping, and a
// bounded scrollback. It is a simplified sibling of the teacher's
// internal/vt emulator — full mouse/selection/alt-screen/Sixel/Kitty-graphics
// handling is out of scope (spec.md Non-goals exclude the rendering/client
// surface), but the line-extraction and dirty-tracking shape it exposes is
// what internal/sessionstore and the FullScreenDump response need.
//
// Like the teacher's internal/vt.Emulator, parsing is driven by
// charmbracelet/x/ansi rather than a hand-rolled scanner: the teacher feeds
// an ansi.Parser byte-by-byte through a Handler (emulator.go's
// NewEmulator/Write); this package instead decodes one sequence at a time
// with ansi.DecodeSequence/ansi.GetParser the way
// internal/ui/compositor.StringDrawable.Draw does in the andyrewlee-amux
// pack repo, since it only needs a handful of CSI finals (cursor movement,
// erase, SGR) and OSC 0/2 rather than the teacher's full Kitty/Sixel/mouse
// surface.
package vtscreen

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"
)

// Style is the subset of SGR attributes a cell can carry.
type Style struct {
	FG        int // -1 means default
	BG        int // -1 means default
	Bold      bool
	Italic    bool
	Underline bool
	Reverse   bool
}

var defaultStyle = Style{FG: -1, BG: -1}

// Cell is one grid position: a display rune (possibly empty for the second
// half of a wide character) and its style.
type Cell struct {
	Rune  rune
	Width int
	Style Style
}

func blankCell() Cell { return Cell{Rune: ' ', Width: 1, Style: defaultStyle} }

// Screen is a fixed-size grid of Cells plus a bounded scrollback of rows
// that scrolled off the top.
type Screen struct {
	mu sync.Mutex

	width, height int
	grid          [][]Cell

	cursorX, cursorY int
	curStyle         Style

	scrollback    [][]Cell
	scrollbackMax int

	title string
	seq   atomic.Uint64

	// decodeState carries ansi.DecodeSequence's state machine across
	// Write calls, so an escape sequence split across two PTY reads still
	// decodes correctly.
	decodeState byte
}

// New creates a Screen of the given size with a default scrollback cap of
// 10000 lines (matching the teacher's ScrollbackLines default).
func New(width, height int) *Screen {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Screen{
		width:         width,
		height:        height,
		curStyle:      defaultStyle,
		scrollbackMax: 10000,
		grid:          newGrid(width, height),
	}
}

func newGrid(w, h int) [][]Cell {
	grid := make([][]Cell, h)
	for y := range grid {
		row := make([]Cell, w)
		for x := range row {
			row[x] = blankCell()
		}
		grid[y] = row
	}
	return grid
}

// SetScrollbackLimit sets the maximum retained scrollback row count.
func (s *Screen) SetScrollbackLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollbackMax = n
	s.trimScrollback()
}

// Write feeds raw PTY output bytes through the ansi decoder, mutating the
// grid and advancing the sequence counter once per call.
func (s *Screen) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed(data)
	s.seq.Add(1)
	return len(data), nil
}

// Seq returns the monotonic write counter, used to detect whether a pane's
// screen changed since a client's last render.
func (s *Screen) Seq() uint64 {
	return s.seq.Load()
}

// Title returns the last OSC-2 (window title) string the child set, if any.
func (s *Screen) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Resize changes the visible grid size, preserving existing content
// top-left-anchored and padding/truncating rows and columns as needed.
func (s *Screen) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	newRows := newGrid(width, height)
	for y := 0; y < height && y < len(s.grid); y++ {
		for x := 0; x < width && x < len(s.grid[y]); x++ {
			newRows[y][x] = s.grid[y][x]
		}
	}
	s.grid = newRows
	s.width, s.height = width, height
	if s.cursorX >= width {
		s.cursorX = width - 1
	}
	if s.cursorY >= height {
		s.cursorY = height - 1
	}
}

// Lines returns the visible grid as plain text, one string per row, with
// trailing blank cells trimmed from each line.
func (s *Screen) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.grid))
	for i, row := range s.grid {
		out[i] = rowText(row)
	}
	return out
}

// ScrollbackLines returns the retained scrollback, oldest first, as plain
// text rows — what internal/sessionstore persists alongside the visible
// grid.
func (s *Screen) ScrollbackLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.scrollback))
	for i, row := range s.scrollback {
		out[i] = rowText(row)
	}
	return out
}

func rowText(row []Cell) string {
	end := len(row)
	for end > 0 && row[end-1].Rune == ' ' {
		end--
	}
	runes := make([]rune, 0, end)
	for i := 0; i < end; i++ {
		if row[i].Width == 0 {
			continue
		}
		runes = append(runes, row[i].Rune)
	}
	return string(runes)
}

// Dump renders the full grid (not just a diff), used for the
// FullScreenDump response when a client reattaches.
func (s *Screen) Dump() []byte {
	lines := s.Lines()
	var out []byte
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\r', '\n')
		}
		out = append(out, []byte(l)...)
	}
	return out
}

// feed decodes data one ansi.DecodeSequence unit at a time — a printable
// grapheme, a C0 control byte, or a CSI/OSC escape sequence — and applies
// each to the grid in turn.
func (s *Screen) feed(data []byte) {
	p := ansi.GetParser()
	defer ansi.PutParser(p)

	buf := string(data)
	for len(buf) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(buf, s.decodeState, p)
		if n <= 0 {
			break
		}
		if width > 0 {
			s.putGrapheme(seq, width)
		} else {
			s.handleControl(seq, p)
		}
		buf = buf[n:]
		s.decodeState = newState
	}
}

func (s *Screen) putGrapheme(seq string, width int) {
	r := firstRune(seq)
	if width <= 0 {
		width = 1
	}
	if s.cursorX+width > s.width {
		s.newline()
	}
	s.grid[s.cursorY][s.cursorX] = Cell{Rune: r, Width: width, Style: s.curStyle}
	for k := 1; k < width && s.cursorX+k < s.width; k++ {
		s.grid[s.cursorY][s.cursorX+k] = Cell{Rune: 0, Width: 0, Style: s.curStyle}
	}
	s.cursorX += width
	if s.cursorX > s.width {
		s.cursorX = s.width
	}
}

func firstRune(str string) rune {
	for _, r := range str {
		return r
	}
	return ' '
}

// handleControl applies a non-printable decode step: a bare C0 control
// byte, a CSI sequence (cursor movement, erase, SGR), or an OSC 0/2 title
// sequence. Anything else ansi.DecodeSequence hands back is discarded, the
// same as the teacher's emulator ignores escape sequences it has no
// handler registered for.
func (s *Screen) handleControl(seq string, p *ansi.Parser) {
	if len(seq) == 1 {
		switch seq[0] {
		case '\n':
			s.newline()
		case '\r':
			s.cursorX = 0
		case '\b':
			if s.cursorX > 0 {
				s.cursorX--
			}
		case '\t':
			next := ((s.cursorX / 8) + 1) * 8
			if next >= s.width {
				next = s.width - 1
			}
			s.cursorX = next
		}
		return
	}
	switch {
	case strings.HasPrefix(seq, "\x1b["):
		cmd := ansi.Cmd(p.Command())
		s.applyCSI(cmd.Final(), p.Params())
	case strings.HasPrefix(seq, "\x1b]"):
		s.applyOSC(seq)
	}
}

func (s *Screen) newline() {
	s.cursorX = 0
	if s.cursorY == s.height-1 {
		s.scrollback = append(s.scrollback, s.grid[0])
		s.trimScrollback()
		rest := newGrid(s.width, 1)
		s.grid = append(s.grid[1:], rest[0])
	} else {
		s.cursorY++
	}
}

func (s *Screen) trimScrollback() {
	if s.scrollbackMax <= 0 {
		s.scrollback = nil
		return
	}
	if len(s.scrollback) > s.scrollbackMax {
		s.scrollback = s.scrollback[len(s.scrollback)-s.scrollbackMax:]
	}
}

func (s *Screen) applyCSI(final byte, params ansi.Params) {
	switch final {
	case 'm':
		s.applySGR(params)
	case 'H', 'f':
		row := paramAt(params, 0, 1)
		col := paramAt(params, 1, 1)
		s.cursorY = clamp(row-1, 0, s.height-1)
		s.cursorX = clamp(col-1, 0, s.width-1)
	case 'A':
		s.cursorY = clamp(s.cursorY-paramAt(params, 0, 1), 0, s.height-1)
	case 'B':
		s.cursorY = clamp(s.cursorY+paramAt(params, 0, 1), 0, s.height-1)
	case 'C':
		s.cursorX = clamp(s.cursorX+paramAt(params, 0, 1), 0, s.width-1)
	case 'D':
		s.cursorX = clamp(s.cursorX-paramAt(params, 0, 1), 0, s.width-1)
	case 'J':
		s.eraseDisplay(paramAt(params, 0, 0))
	case 'K':
		s.eraseLine(paramAt(params, 0, 0))
	}
}

// paramAt reads CSI parameter i (1-indexed semantics handled by callers),
// treating both a missing parameter and an explicit 0 the way most CSI
// finals do: fall back to def.
func paramAt(params ansi.Params, i, def int) int {
	if i >= len(params) {
		return def
	}
	v, _, _ := params.Param(i, def)
	if v == 0 {
		return def
	}
	return v
}

func (s *Screen) eraseDisplay(mode int) {
	switch mode {
	case 2, 3:
		s.grid = newGrid(s.width, s.height)
	default:
		s.eraseLine(0)
	}
}

func (s *Screen) eraseLine(mode int) {
	row := s.grid[s.cursorY]
	switch mode {
	case 0:
		for x := s.cursorX; x < len(row); x++ {
			row[x] = blankCell()
		}
	case 1:
		for x := 0; x <= s.cursorX && x < len(row); x++ {
			row[x] = blankCell()
		}
	case 2:
		for x := range row {
			row[x] = blankCell()
		}
	}
}

func (s *Screen) applySGR(params ansi.Params) {
	if len(params) == 0 {
		s.curStyle = defaultStyle
		return
	}
	for i := 0; i < len(params); i++ {
		p := paramAt(params, i, 0)
		switch p {
		case 0:
			s.curStyle = defaultStyle
		case 1:
			s.curStyle.Bold = true
		case 3:
			s.curStyle.Italic = true
		case 4:
			s.curStyle.Underline = true
		case 7:
			s.curStyle.Reverse = true
		case 22:
			s.curStyle.Bold = false
		case 23:
			s.curStyle.Italic = false
		case 24:
			s.curStyle.Underline = false
		case 27:
			s.curStyle.Reverse = false
		default:
			switch {
			case p >= 30 && p <= 37:
				s.curStyle.FG = p - 30
			case p >= 40 && p <= 47:
				s.curStyle.BG = p - 40
			case p == 39:
				s.curStyle.FG = -1
			case p == 49:
				s.curStyle.BG = -1
			}
		}
	}
}

// applyOSC interprets OSC 0/2 (window title) from a fully decoded OSC
// sequence, stripping the ESC ] introducer and BEL/ST terminator.
func (s *Screen) applyOSC(seq string) {
	body := seq
	if len(body) >= 2 && body[0] == 0x1b && body[1] == ']' {
		body = body[2:]
	}
	body = strings.TrimSuffix(body, "\x1b\\")
	body = strings.TrimSuffix(body, "\x07")

	sep := strings.IndexByte(body, ';')
	if sep < 0 {
		return
	}
	code := body[:sep]
	if code == "0" || code == "2" {
		s.title = body[sep+1:]
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
