package pane

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestKindLabels(t *testing.T) {
	cases := map[Kind]string{
		KindShell:     "shell",
		KindAgent:     "claude",
		KindNvim:      "nvim",
		KindDevServer: "server",
	}
	for k, want := range cases {
		if got := k.Label(); got != want {
			t.Fatalf("Kind(%d).Label() = %q, want %q", k, got, want)
		}
	}
}

func syntheticTab() *Tab {
	return &Tab{ID: uuid.New(), closeCh: make(chan struct{})}
}

func TestWindowAddAndCloseTab(t *testing.T) {
	w := NewWindow(syntheticTab())
	w.AddTab(syntheticTab())
	if len(w.Tabs) != 2 || w.ActiveTab != 1 {
		t.Fatalf("got %d tabs, active=%d", len(w.Tabs), w.ActiveTab)
	}
	empty := w.CloseTab(1)
	if empty {
		t.Fatal("should not be empty after closing one of two tabs")
	}
	if w.ActiveTab != 0 {
		t.Fatalf("active = %d, want 0", w.ActiveTab)
	}
}

func TestWindowCloseTabAdjustsActiveIndex(t *testing.T) {
	w := NewWindow(syntheticTab())
	w.AddTab(syntheticTab())
	w.AddTab(syntheticTab())
	w.ActiveTab = 2
	w.CloseTab(2)
	if w.ActiveTab != 1 {
		t.Fatalf("active = %d, want 1", w.ActiveTab)
	}
}

func TestWindowCloseLastTabReportsEmpty(t *testing.T) {
	w := NewWindow(syntheticTab())
	if empty := w.CloseTab(0); !empty {
		t.Fatal("expected empty after closing only tab")
	}
	if w.Active() != nil {
		t.Fatal("expected nil active tab on empty window")
	}
}

func TestWindowNextPrevTabWraps(t *testing.T) {
	w := NewWindow(syntheticTab())
	w.AddTab(syntheticTab())
	w.AddTab(syntheticTab())
	w.ActiveTab = 0
	w.PrevTab()
	if w.ActiveTab != 2 {
		t.Fatalf("PrevTab from 0 = %d, want 2", w.ActiveTab)
	}
	w.NextTab()
	if w.ActiveTab != 0 {
		t.Fatalf("NextTab from 2 = %d, want 0", w.ActiveTab)
	}
}

func TestNewTabSpawnsAndCapturesOutput(t *testing.T) {
	var mu sync.Mutex
	var gotOutput bool
	tab := NewTab(SpawnOptions{Command: "/bin/sh", Args: []string{"-c", "echo hello-from-pty; sleep 0.2"}, Width: 80, Height: 24},
		func(id uuid.UUID, data []byte) {
			mu.Lock()
			gotOutput = gotOutput || strings.Contains(string(data), "hello-from-pty")
			mu.Unlock()
		}, nil)
	defer tab.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := gotOutput
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("did not observe expected pty output in time")
}

func TestNewTabReportsExit(t *testing.T) {
	exited := make(chan uuid.UUID, 1)
	tab := NewTab(SpawnOptions{Command: "/bin/sh", Args: []string{"-c", "exit 0"}, Width: 80, Height: 24},
		nil, func(id uuid.UUID) { exited <- id })
	defer tab.Close()

	select {
	case id := <-exited:
		if id != tab.ID {
			t.Fatalf("got id %v, want %v", id, tab.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tab did not report exit in time")
	}
	if !tab.Exited() {
		t.Fatal("Exited() should be true")
	}
}
