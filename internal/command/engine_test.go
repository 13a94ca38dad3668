package command

import (
	"testing"

	"github.com/lucasilverentand/pane/internal/layout"
	"github.com/lucasilverentand/pane/internal/pane"
	"github.com/lucasilverentand/pane/internal/workspace"
)

func newTestState(t *testing.T) (*workspace.ServerState, *Engine) {
	t.Helper()
	tab := pane.NewTab(pane.SpawnOptions{Command: "/bin/sh", Args: []string{"-c", "sleep 5"}, Width: 80, Height: 24}, nil, nil)
	win := pane.NewWindow(tab)
	ws := workspace.New("main", win)
	st := workspace.NewState("main", ws)
	st.IDMap.RegisterPane(tab.ID)
	st.IDMap.RegisterWindow(win.ID)
	t.Cleanup(func() { win.CloseTab(0) })
	return st, New(st, nil)
}

func TestSplitWindowProducesHorizontalLayoutChange(t *testing.T) {
	st, eng := newTestState(t)
	cmd, err := Parse("split-window -h")
	if err != nil {
		t.Fatal(err)
	}
	res := eng.Execute(cmd)
	if res.Kind != ResultLayoutChanged {
		t.Fatalf("got kind %d, err=%v", res.Kind, res.Err)
	}
	ws := st.ActiveWorkspaceState()
	if ws.Layout.Kind != layout.KindSplit || ws.Layout.Direction != layout.Horizontal {
		t.Fatalf("layout = %+v", ws.Layout)
	}
	if len(ws.Groups) != 2 {
		t.Fatalf("got %d groups", len(ws.Groups))
	}
	if _, ok := st.IDMap.PaneNumber(ws.ActiveGroupWindow().Tabs[0].ID); !ok {
		t.Fatal("new pane should be registered in IdMap")
	}
}

func TestKillPaneCollapsesLayout(t *testing.T) {
	st, eng := newTestState(t)
	splitRes := eng.Execute(mustParse(t, "split-window -h"))
	if splitRes.Kind != ResultLayoutChanged {
		t.Fatalf("split failed: %v", splitRes.Err)
	}
	ws := st.ActiveWorkspaceState()
	secondLeaf := ws.Layout.Second.Leaf
	paneNum, ok := st.IDMap.WindowNumber(secondLeaf)
	if !ok {
		t.Fatal("expected window number for second leaf")
	}
	win := ws.Groups[secondLeaf]
	tabNum, ok := st.IDMap.PaneNumber(win.Tabs[0].ID)
	if !ok {
		t.Fatal("expected pane number")
	}
	_ = paneNum

	killRes := eng.Execute(mustParse(t, "kill-pane -t %"+itoa(tabNum)))
	if killRes.Kind != ResultLayoutChanged {
		t.Fatalf("kill-pane failed: %v", killRes.Err)
	}
	if ws.Layout.Kind != layout.KindLeaf {
		t.Fatalf("expected collapsed leaf layout, got %+v", ws.Layout)
	}
	if len(ws.Groups) != 1 {
		t.Fatalf("expected 1 group remaining, got %d", len(ws.Groups))
	}
}

func TestSendKeysEnterProducesCarriageReturn(t *testing.T) {
	st, eng := newTestState(t)
	win := st.ActiveWorkspaceState().ActiveGroupWindow()
	tabNum, _ := st.IDMap.PaneNumber(win.Tabs[0].ID)

	res := eng.Execute(mustParse(t, `send-keys -t %`+itoa(tabNum)+` "hello\n"`))
	if res.Kind == ResultErr {
		t.Fatalf("send-keys failed: %v", res.Err)
	}
}

func TestListClientsReportsNone(t *testing.T) {
	_, eng := newTestState(t)
	res := eng.Execute(mustParse(t, "list-clients"))
	if res.Kind != ResultOk {
		t.Fatalf("got kind %d, err=%v", res.Kind, res.Err)
	}
	if res.Output != "" {
		t.Fatalf("expected no clients, got %q", res.Output)
	}
}

func TestResizePaneAppliesAbsolutePercentage(t *testing.T) {
	st, eng := newTestState(t)
	if res := eng.Execute(mustParse(t, "split-window -h")); res.Kind != ResultLayoutChanged {
		t.Fatalf("split failed: %v", res.Err)
	}
	ws := st.ActiveWorkspaceState()
	firstLeaf := ws.Layout.First.Leaf
	winNum, ok := st.IDMap.WindowNumber(firstLeaf)
	if !ok {
		t.Fatal("expected window number for first leaf")
	}

	res := eng.Execute(mustParse(t, "resize-pane -t @"+itoa(winNum)+" 30"))
	if res.Kind != ResultLayoutChanged {
		t.Fatalf("got kind %d, err=%v", res.Kind, res.Err)
	}
	if got := ws.Layout.Ratio; got != 0.3 {
		t.Fatalf("ratio = %v, want 0.3", got)
	}
}

func TestResizePaneAppliesRelativeDelta(t *testing.T) {
	st, eng := newTestState(t)
	if res := eng.Execute(mustParse(t, "split-window -h")); res.Kind != ResultLayoutChanged {
		t.Fatalf("split failed: %v", res.Err)
	}
	ws := st.ActiveWorkspaceState()
	firstLeaf := ws.Layout.First.Leaf
	winNum, ok := st.IDMap.WindowNumber(firstLeaf)
	if !ok {
		t.Fatal("expected window number for first leaf")
	}

	res := eng.Execute(mustParse(t, "resize-pane -t @"+itoa(winNum)+" -5"))
	if res.Kind != ResultLayoutChanged {
		t.Fatalf("got kind %d, err=%v", res.Kind, res.Err)
	}
	if got := ws.Layout.Ratio; got != 0.45 {
		t.Fatalf("ratio = %v, want 0.45", got)
	}
}

func TestResizePaneRootTargetErrs(t *testing.T) {
	st, eng := newTestState(t)
	ws := st.ActiveWorkspaceState()
	winNum, ok := st.IDMap.WindowNumber(ws.ActiveGroup)
	if !ok {
		t.Fatal("expected window number for root window")
	}
	res := eng.Execute(mustParse(t, "resize-pane -t @"+itoa(winNum)+" 30"))
	if res.Kind != ResultErr {
		t.Fatal("expected an error resizing the unsplit root")
	}
}

func TestSelectLayoutEqualizeResetsRatios(t *testing.T) {
	st, eng := newTestState(t)
	if res := eng.Execute(mustParse(t, "split-window -h")); res.Kind != ResultLayoutChanged {
		t.Fatalf("split failed: %v", res.Err)
	}
	ws := st.ActiveWorkspaceState()
	firstLeaf := ws.Layout.First.Leaf
	winNum, _ := st.IDMap.WindowNumber(firstLeaf)
	if res := eng.Execute(mustParse(t, "resize-pane -t @"+itoa(winNum)+" 30")); res.Kind != ResultLayoutChanged {
		t.Fatalf("resize failed: %v", res.Err)
	}

	res := eng.Execute(mustParse(t, "select-layout -E"))
	if res.Kind != ResultLayoutChanged {
		t.Fatalf("got kind %d, err=%v", res.Kind, res.Err)
	}
	if got := ws.Layout.Ratio; got != 0.5 {
		t.Fatalf("ratio = %v, want 0.5 after equalize", got)
	}
}

func TestKillSessionReturnsSessionEnded(t *testing.T) {
	_, eng := newTestState(t)
	res := eng.Execute(mustParse(t, "kill-session"))
	if res.Kind != ResultSessionEnded {
		t.Fatalf("got kind %d", res.Kind)
	}
}

func TestUnknownCommandErrs(t *testing.T) {
	_, eng := newTestState(t)
	res := eng.Execute(mustParse(t, "frobnicate-pane"))
	if res.Kind != ResultErr {
		t.Fatal("expected an error result")
	}
}

func TestResolveTargetUnknownPaneErrs(t *testing.T) {
	_, eng := newTestState(t)
	res := eng.Execute(mustParse(t, "kill-pane -t %999"))
	if res.Kind != ResultErr {
		t.Fatal("expected an error for an unregistered pane number")
	}
}

func mustParse(t *testing.T, line string) Command {
	t.Helper()
	cmd, err := Parse(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return cmd
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
