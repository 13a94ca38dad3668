// Package tabbar computes tab-bar and workspace-bar geometry for click
// hit-testing (spec §4.3). It is a pure-function package: given a window's
// (or workspace's) titles, an active index, and a rectangle, it produces
// half-open ranges and never touches I/O or state.
//
// Ported from the original Rust daemon's tab_bar.rs (pane geometry) and
// ui/workspace_bar.rs (workspace geometry), which share an identical
// layout algorithm and differ only in their text-row placement rule.
package tabbar

// Rect is an absolute screen rectangle in cell coordinates.
type Rect struct {
	X, Y, W, H int
}

// Range is a half-open column range [Start, End). A zero-value Range
// (Start==0 && End==0) is the "hidden" sentinel for a tab that didn't fit.
type Range struct {
	Start, End int
}

func (r Range) hidden() bool { return r.Start == 0 && r.End == 0 }

func (r Range) contains(x int) bool { return x >= r.Start && x < r.End }

// ClickKind distinguishes a click on an existing tab from a click on the
// "+" new-tab button.
type ClickKind int

const (
	// ClickTab indicates a click on an existing tab, identified by index.
	ClickTab ClickKind = iota
	// ClickNewTab indicates a click on the trailing "+" button.
	ClickNewTab
)

// Click is the result of a successful hit test.
type Click struct {
	Kind  ClickKind
	Index int // valid when Kind == ClickTab
}

const (
	sepWidth    = 3 // " · "
	plusReserve = 3 // " + "
)

// PaneTextRow computes the one-line-tall, one-column-inset text row for a
// pane's tab bar inside a bordered outer rectangle. It returns false if the
// resulting inner width is <= 2 or inner height is <= 0 — there isn't enough
// room to draw anything.
func PaneTextRow(outer Rect) (Rect, bool) {
	inner := Rect{X: outer.X + 1, Y: outer.Y + 1, W: outer.W - 2, H: outer.H - 2}
	if inner.W <= 2 || inner.H <= 0 {
		return Rect{}, false
	}
	return Rect{X: inner.X + 1, Y: inner.Y, W: inner.W - 2, H: 1}, true
}

// WorkspaceTextRow computes the text row for the workspace bar. Unlike
// PaneTextRow it never fails: for a zero-sized area it returns the area
// unchanged. When the area looks like a 3-row bordered block (width and
// height both > 2) the row is shifted to the vertical middle, matching the
// workspace bar's autodetection of its own border.
func WorkspaceTextRow(area Rect) Rect {
	if area.W == 0 || area.H == 0 {
		return area
	}
	hasBorder := area.W > 2 && area.H > 2
	x, w, y := area.X, area.W, area.Y
	if hasBorder {
		x = area.X + 1
		w = area.W - 2
		y = area.Y + area.H/2
	}
	return Rect{X: x, Y: y, W: w, H: 1}
}

// TruncateName shortens name to at most max bytes, appending "..." when it
// must cut (so the visible result is max bytes total). Names already at or
// under the limit are returned unchanged.
func TruncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max-3] + "..."
}

// Layout is the computed geometry for a bar: one range per label (in input
// order; a hidden range is the (0,0) sentinel) plus an optional "+" range.
type Layout struct {
	Row       Rect
	Ranges    []Range
	PlusRange *Range
}

// computeRanges is the shared algorithm behind both tab bars: lay labels
// left to right, separated by a 3-column " · ", reserving 3 columns for a
// trailing "+" button. A tab that would overflow the row is replaced with
// the hidden sentinel unless it's the active tab, which is always emitted.
func computeRanges(labels []string, activeIdx int, row Rect) Layout {
	ranges := make([]Range, 0, len(labels))
	cursor := row.X
	maxX := row.X + row.W

	for i, label := range labels {
		isActive := i == activeIdx
		text := " " + label + " "
		width := len(text)

		if cursor+width+plusReserve > maxX && !isActive {
			ranges = append(ranges, Range{0, 0})
			continue
		}

		if i > 0 {
			cursor += sepWidth
		}
		start := cursor
		cursor += width
		ranges = append(ranges, Range{start, cursor})
	}

	var plus *Range
	if cursor+sepWidth+plusReserve <= maxX {
		cursor += sepWidth
		start := cursor
		cursor += plusReserve
		plus = &Range{start, cursor}
	}

	return Layout{Row: row, Ranges: ranges, PlusRange: plus}
}

// TabBarLayout computes tab-bar geometry for a window's tab titles. Titles
// are used verbatim (pane titles are not truncated).
func TabBarLayout(titles []string, activeIdx int, row Rect) Layout {
	return computeRanges(titles, activeIdx, row)
}

// WorkspaceBarLayout computes workspace-bar geometry. Names longer than 20
// bytes are truncated with a trailing "..." before layout, per spec §4.3.
func WorkspaceBarLayout(names []string, activeIdx int, row Rect) Layout {
	truncated := make([]string, len(names))
	for i, n := range names {
		truncated[i] = TruncateName(n, 20)
	}
	return computeRanges(truncated, activeIdx, row)
}

// HitTest resolves a click at (x,y) against a computed Layout. It rejects
// clicks outside the bar row or rectangle, matches the "+" button first,
// then falls through to visible tab ranges.
func HitTest(l Layout, x, y int) (Click, bool) {
	if y != l.Row.Y {
		return Click{}, false
	}
	if x < l.Row.X || x >= l.Row.X+l.Row.W {
		return Click{}, false
	}
	if l.PlusRange != nil && l.PlusRange.contains(x) {
		return Click{Kind: ClickNewTab}, true
	}
	for i, r := range l.Ranges {
		if r.hidden() {
			continue
		}
		if r.contains(x) {
			return Click{Kind: ClickTab, Index: i}, true
		}
	}
	return Click{}, false
}
