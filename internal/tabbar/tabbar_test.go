package tabbar

import "testing"

func TestPaneTextRowTooSmall(t *testing.T) {
	if _, ok := PaneTextRow(Rect{0, 0, 2, 2}); ok {
		t.Fatal("expected too-small rect to fail")
	}
	if _, ok := PaneTextRow(Rect{0, 0, 10, 0}); ok {
		t.Fatal("expected zero-height rect to fail")
	}
}

func TestPaneTextRowNormal(t *testing.T) {
	row, ok := PaneTextRow(Rect{0, 0, 80, 24})
	if !ok {
		t.Fatal("expected success")
	}
	if row.X != 2 || row.Y != 1 || row.W != 76 || row.H != 1 {
		t.Fatalf("row = %+v", row)
	}
}

func TestWorkspaceTextRowZeroArea(t *testing.T) {
	area := Rect{0, 0, 0, 0}
	if got := WorkspaceTextRow(area); got != area {
		t.Fatalf("expected unchanged area, got %+v", got)
	}
}

func TestWorkspaceTextRowBorderedShiftsToMiddle(t *testing.T) {
	row := WorkspaceTextRow(Rect{0, 0, 20, 3})
	if row.X != 1 || row.Y != 1 || row.W != 18 || row.H != 1 {
		t.Fatalf("row = %+v", row)
	}
}

func TestWorkspaceTextRowUnborderedNoShift(t *testing.T) {
	row := WorkspaceTextRow(Rect{5, 5, 2, 1})
	if row.X != 5 || row.Y != 5 || row.W != 2 {
		t.Fatalf("row = %+v", row)
	}
}

func TestTruncateNameUnchangedWhenShort(t *testing.T) {
	if got := TruncateName("short", 20); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateNameCutsLong(t *testing.T) {
	name := "this-is-a-very-long-workspace-name"
	got := TruncateName(name, 20)
	if len(got) != 20 {
		t.Fatalf("len(%q) = %d, want 20", got, len(got))
	}
	if got[17:] != "..." {
		t.Fatalf("got %q, want trailing ...", got)
	}
}

// TestTabBarHitTestBoundaries reproduces spec §8 property 9 exactly:
// for names ["alpha"] in rect (0,0,80,1), x in [0,6] hits Tab(0), x=7 does
// not, and the active tab is always present even when width is tight.
func TestTabBarHitTestBoundaries(t *testing.T) {
	row := Rect{0, 0, 80, 1}
	layout := TabBarLayout([]string{"alpha"}, 0, row)

	for x := 0; x <= 6; x++ {
		click, ok := HitTest(layout, x, 0)
		if !ok || click.Kind != ClickTab || click.Index != 0 {
			t.Fatalf("x=%d: got %+v,%v want Tab(0)", x, click, ok)
		}
	}
	if click, ok := HitTest(layout, 7, 0); ok && click.Kind == ClickTab && click.Index == 0 {
		t.Fatal("x=7 should not be Tab(0)")
	}
}

func TestTabBarActiveAlwaysVisibleEvenWhenTight(t *testing.T) {
	titles := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		titles = append(titles, "a-reasonably-long-tab-title")
	}
	row := Rect{0, 0, 20, 1}
	activeIdx := 39
	layout := TabBarLayout(titles, activeIdx, row)
	if layout.Ranges[activeIdx].hidden() {
		t.Fatal("active tab must never be hidden")
	}
}

func TestTabBarPlusButtonThreeColumnsAfterSeparator(t *testing.T) {
	row := Rect{0, 0, 80, 1}
	layout := TabBarLayout([]string{"alpha"}, 0, row)
	if layout.PlusRange == nil {
		t.Fatal("expected a plus range")
	}
	width := layout.PlusRange.End - layout.PlusRange.Start
	if width != 3 {
		t.Fatalf("plus width = %d, want 3", width)
	}
	// one separator (3 cols) between the tab's end and the plus button.
	if layout.PlusRange.Start != layout.Ranges[0].End+3 {
		t.Fatalf("plus start = %d, want %d", layout.PlusRange.Start, layout.Ranges[0].End+3)
	}
}

func TestHitTestRejectsWrongRow(t *testing.T) {
	row := Rect{0, 0, 80, 1}
	layout := TabBarLayout([]string{"alpha"}, 0, row)
	if _, ok := HitTest(layout, 2, 1); ok {
		t.Fatal("y != bar row should reject")
	}
}

func TestHitTestRejectsOutsideX(t *testing.T) {
	row := Rect{10, 0, 20, 1}
	layout := TabBarLayout([]string{"a"}, 0, row)
	if _, ok := HitTest(layout, 5, 0); ok {
		t.Fatal("x before bar start should reject")
	}
	if _, ok := HitTest(layout, 31, 0); ok {
		t.Fatal("x at/after bar end should reject")
	}
}

func TestWorkspaceBarLayoutTruncatesNames(t *testing.T) {
	names := []string{"this-is-a-very-long-workspace-name"}
	row := Rect{0, 0, 80, 1}
	layout := WorkspaceBarLayout(names, 0, row)
	width := layout.Ranges[0].End - layout.Ranges[0].Start
	// " " + 20-byte truncated name + " " == 22
	if width != 22 {
		t.Fatalf("width = %d, want 22", width)
	}
}
