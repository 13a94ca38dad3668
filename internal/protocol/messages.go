package protocol

// RequestKind tags the variant of a ClientRequest.
type RequestKind string

// ClientRequest variants, spec §4.6.
const (
	ReqAttach         RequestKind = "attach"
	ReqDetach         RequestKind = "detach"
	ReqResize         RequestKind = "resize"
	ReqKey            RequestKind = "key"
	ReqMouse          RequestKind = "mouse"
	ReqCommand        RequestKind = "command"
	ReqCommandSync    RequestKind = "command_sync"
	ReqFullScreenDump RequestKind = "full_screen_dump"
)

// ClientRequest is a message sent from an attached client to the daemon.
// Only the fields relevant to Kind are populated; the rest are left at
// their zero value.
type ClientRequest struct {
	Kind RequestKind `json:"kind"`

	// Attach, Resize
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Key
	Bytes []byte `json:"bytes,omitempty"`

	// Mouse
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	MouseKind string `json:"mouse_kind,omitempty"`

	// Command, CommandSync
	Text string `json:"text,omitempty"`
	Seq  uint64 `json:"seq,omitempty"`

	// FullScreenDump
	PaneID uint32 `json:"pane_id,omitempty"`
}

// ResponseKind tags the variant of a ServerResponse.
type ResponseKind string

// ServerResponse variants, spec §4.6.
const (
	RespAttached           ResponseKind = "attached"
	RespPaneOutput         ResponseKind = "pane_output"
	RespPaneExited         ResponseKind = "pane_exited"
	RespLayoutChanged      ResponseKind = "layout_changed"
	RespStatsUpdate        ResponseKind = "stats_update"
	RespSessionEnded       ResponseKind = "session_ended"
	RespError              ResponseKind = "error"
	RespFullScreenDump     ResponseKind = "full_screen_dump"
	RespClientCountChanged ResponseKind = "client_count_changed"
	RespCommandOutput      ResponseKind = "command_output"
	RespPluginSegments     ResponseKind = "plugin_segments"
)

// ServerResponse is a message sent from the daemon to an attached client,
// either as a direct reply or fanned out over the broadcast channel.
type ServerResponse struct {
	Kind ResponseKind `json:"kind"`

	// PaneOutput, PaneExited, FullScreenDump
	PaneID uint32 `json:"pane_id,omitempty"`
	Data   []byte `json:"data,omitempty"`

	// LayoutChanged
	RenderState *RenderState `json:"render_state,omitempty"`

	// StatsUpdate
	Stats *SystemStats `json:"stats,omitempty"`

	// Error
	Message string `json:"message,omitempty"`

	// ClientCountChanged
	Count int `json:"count,omitempty"`

	// CommandOutput
	Seq  uint64 `json:"seq,omitempty"`
	Text string `json:"text,omitempty"`
	Ok   bool   `json:"ok,omitempty"`

	// PluginSegments
	Segments []PluginSegment `json:"segments,omitempty"`
}

// SystemStats is the daemon's periodic system-resource sample (spec §4.9).
type SystemStats struct {
	CPUPercent       float32 `json:"cpu_percent"`
	MemoryPercent    float32 `json:"memory_percent"`
	LoadAvg1         float64 `json:"load_avg_1"`
	DiskUsagePercent float32 `json:"disk_usage_percent"`
}

// PluginSegment is one status-bar contribution from a plugin (spec §4.8).
type PluginSegment struct {
	PluginIndex int    `json:"plugin_index"`
	Text        string `json:"text"`
}

// RenderState is a client-facing snapshot of ServerState with internal
// UUIDs translated to their stable sequential ids, attached to a
// LayoutChanged response.
type RenderState struct {
	Workspaces      []WorkspaceSnapshot `json:"workspaces"`
	ActiveWorkspace int                 `json:"active_workspace"`
}

// LayoutSnapshot mirrors layout.Node for wire transmission: either a leaf
// (Window uint32 != nil) or a split (Direction/Ratio/First/Second set).
type LayoutSnapshot struct {
	Window    *uint32         `json:"window,omitempty"`
	Direction string          `json:"direction,omitempty"`
	Ratio     float64         `json:"ratio,omitempty"`
	First     *LayoutSnapshot `json:"first,omitempty"`
	Second    *LayoutSnapshot `json:"second,omitempty"`
}

// WindowSnapshot mirrors a single Window for wire transmission.
type WindowSnapshot struct {
	ID        uint32         `json:"id"`
	Tabs      []TabSnapshot  `json:"tabs"`
	ActiveTab int            `json:"active_tab"`
}

// TabSnapshot mirrors a single Tab for wire transmission.
type TabSnapshot struct {
	ID      uint32 `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Command string `json:"command"`
	Cwd     string `json:"cwd"`
}

// FloatingWindowSnapshot mirrors workspace.FloatingWindow.
type FloatingWindowSnapshot struct {
	ID     uint32 `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// WorkspaceSnapshot mirrors a single Workspace for wire transmission.
type WorkspaceSnapshot struct {
	Name            string                   `json:"name"`
	Layout          *LayoutSnapshot          `json:"layout"`
	Windows         []WindowSnapshot         `json:"windows"`
	ActiveWindow    uint32                   `json:"active_window"`
	SyncPanes       bool                     `json:"sync_panes"`
	ZoomedWindow    *uint32                  `json:"zoomed_window,omitempty"`
	FloatingWindows []FloatingWindowSnapshot `json:"floating_windows"`
}
