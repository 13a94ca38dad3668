package layout

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewLeafIsLeaf(t *testing.T) {
	g := uuid.New()
	n := NewLeaf(g)
	if n.Kind != KindLeaf || n.Leaf != g {
		t.Fatalf("NewLeaf did not produce a matching leaf")
	}
}

func TestSplitPaneReplacesLeaf(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := NewLeaf(g1)

	if !root.SplitPane(g1, Horizontal, g2) {
		t.Fatal("SplitPane should succeed on existing leaf")
	}
	if root.Kind != KindSplit || root.Direction != Horizontal || root.Ratio != 0.5 {
		t.Fatalf("unexpected split shape: %+v", root)
	}
	if root.First.Leaf != g1 || root.Second.Leaf != g2 {
		t.Fatalf("unexpected children: first=%v second=%v", root.First.Leaf, root.Second.Leaf)
	}
}

func TestSplitPaneMissingTargetFails(t *testing.T) {
	root := NewLeaf(uuid.New())
	if root.SplitPane(uuid.New(), Horizontal, uuid.New()) {
		t.Fatal("SplitPane should fail for an absent target")
	}
}

func TestSplitCloseRoundTrip(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)

	newRoot, focus, found := ClosePane(root, g2)
	if !found {
		t.Fatal("close_pane should find g2")
	}
	if focus == nil || *focus != g1 {
		t.Fatalf("focus = %v, want %v", focus, g1)
	}
	if newRoot.Kind != KindLeaf || newRoot.Leaf != g1 {
		t.Fatalf("layout after close = %+v, want Leaf(g1)", newRoot)
	}
}

func TestClosePaneDeepSiblingFocus(t *testing.T) {
	g1, g2, g3 := uuid.New(), uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Vertical, g2)
	root.SplitPane(g2, Vertical, g3)

	newRoot, focus, found := ClosePane(root, g3)
	if !found {
		t.Fatal("expected to find g3")
	}
	if focus == nil || *focus != g2 {
		t.Fatalf("focus = %v, want %v", focus, g2)
	}
	if !Contains(newRoot, g1) || !Contains(newRoot, g2) || Contains(newRoot, g3) {
		t.Fatalf("tree shape wrong after close: %+v", newRoot)
	}
}

func TestCloseUnknownLeafNotFound(t *testing.T) {
	root := NewLeaf(uuid.New())
	_, _, found := ClosePane(root, uuid.New())
	if found {
		t.Fatal("ClosePane should report not found for an absent id")
	}
}

func TestEqualizeIdempotence(t *testing.T) {
	g1, g2, g3 := uuid.New(), uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)
	root.SplitPane(g2, Vertical, g3)
	Resize(root, g1, 0.2)

	Equalize(root)
	Equalize(root)

	var check func(n *Node)
	check = func(n *Node) {
		if n.Kind == KindSplit {
			if n.Ratio != 0.5 {
				t.Fatalf("ratio = %v, want exactly 0.5", n.Ratio)
			}
			check(n.First)
			check(n.Second)
		}
	}
	check(root)
}

func TestResizeClampsToRange(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)

	Resize(root, g1, 0.0)
	if root.Ratio != minRatio {
		t.Fatalf("ratio = %v, want clamped to %v", root.Ratio, minRatio)
	}
	Resize(root, g1, 1.0)
	if root.Ratio != maxRatio {
		t.Fatalf("ratio = %v, want clamped to %v", root.Ratio, maxRatio)
	}
}

func TestResizeSecondChildUsesComplement(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)

	Resize(root, g2, 0.3)
	if got, want := root.Ratio, 0.7; got != want {
		t.Fatalf("ratio = %v, want %v (1 - 0.3)", got, want)
	}
}

func TestPaneIDsInOrder(t *testing.T) {
	g1, g2, g3 := uuid.New(), uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)
	root.SplitPane(g1, Vertical, g3)

	ids := PaneIDs(root)
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	if ids[0] != g1 || ids[1] != g3 || ids[2] != g2 {
		t.Fatalf("ids = %v, want [g1 g3 g2] in tree order", ids)
	}
}

func TestContains(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := NewLeaf(g1)
	if !Contains(root, g1) {
		t.Fatal("expected tree to contain g1")
	}
	if Contains(root, g2) {
		t.Fatal("expected tree to not contain g2")
	}
}

func TestValidateRejectsOutOfRangeRatio(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := &Node{Kind: KindSplit, Ratio: 1.0, First: NewLeaf(g1), Second: NewLeaf(g2)}
	if Validate(root) {
		t.Fatal("Validate should reject ratio == 1.0")
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	g1, g2, g3 := uuid.New(), uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)
	root.SplitPane(g2, Vertical, g3)
	if !Validate(root) {
		t.Fatal("Validate should accept a well-formed tree")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	root := NewLeaf(g1)
	root.SplitPane(g1, Horizontal, g2)

	clone := Clone(root)
	Resize(root, g1, 0.3)
	if clone.Ratio == root.Ratio {
		t.Fatal("clone should not be affected by mutation of the original")
	}
}

func TestEqual(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	a := NewLeaf(g1)
	a.SplitPane(g1, Horizontal, g2)
	b := Clone(a)
	if !Equal(a, b) {
		t.Fatal("clone should be structurally equal to the original")
	}
	Resize(b, g1, 0.3)
	if Equal(a, b) {
		t.Fatal("trees should differ after resizing one of them")
	}
}

func TestMultipleGroupsInWorkspaceSplitChain(t *testing.T) {
	g1, g2, g3, g4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	root := NewLeaf(g1)
	if !root.SplitPane(g1, Horizontal, g2) {
		t.Fatal("split 1 failed")
	}
	if !root.SplitPane(g2, Vertical, g3) {
		t.Fatal("split 2 failed")
	}
	if !root.SplitPane(g1, Vertical, g4) {
		t.Fatal("split 3 failed")
	}

	ids := PaneIDs(root)
	if len(ids) != 4 {
		t.Fatalf("len(ids) = %d, want 4", len(ids))
	}
	for _, id := range []uuid.UUID{g1, g2, g3, g4} {
		if !Contains(root, id) {
			t.Fatalf("tree should contain %v", id)
		}
	}
}
