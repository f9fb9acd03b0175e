package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/editor"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/observability/metrics"
	"github.com/matzehuels/mindmap/pkg/session"
	"github.com/matzehuels/mindmap/pkg/tree"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// newTestServer serves a map with a root "Root" and children "A" and "B".
// Ids are n1, n2 and n3.
func newTestServer(t *testing.T, path string, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	ctx := context.Background()
	ed := editor.New(document.Empty(tree.WithIDGenerator(tree.NewSequenceGenerator("n"))), nil)
	root, err := ed.Init(ctx, tree.TextContent("Root"))
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"A", "B"} {
		if _, err := ed.AddChild(ctx, root, tree.TextContent(text)); err != nil {
			t.Fatal(err)
		}
	}
	sess := session.New(ed, path, session.WithLogger(quietLogger()))
	srv := New(sess, nil, append([]Option{WithLogger(quietLogger())}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, _ := do(t, ts, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGetDocument(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, data := do(t, ts, http.MethodGet, "/api/v1/document", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	doc, err := pkgio.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Tree.Len() != 3 {
		t.Errorf("Len = %d, want 3", doc.Tree.Len())
	}
}

func TestNodeEdits(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, data := do(t, ts, http.MethodPost, "/api/v1/nodes", `{"parent":"n2","text":"C"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: status = %d: %s", resp.StatusCode, data)
	}
	added := decodeBody[nodeResponse](t, data)
	if added.ID != "n4" || added.Parent != "n2" || added.Text != "C" || added.Rect.Empty() {
		t.Errorf("add: %+v", added)
	}

	resp, data = do(t, ts, http.MethodPatch, "/api/v1/nodes/n4", `{"text":"C2","link":"https://example.com"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Text != "C2" || got.Link != "https://example.com" {
		t.Errorf("update: %+v", got)
	}

	resp, data = do(t, ts, http.MethodPatch, "/api/v1/nodes/n4", `{"width":300,"height":90}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resize: status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Rect.W != 300 || got.Rect.H != 90 {
		t.Errorf("resize: rect = %+v", got.Rect)
	}

	resp, data = do(t, ts, http.MethodPost, "/api/v1/nodes/n4/move", `{"x":500,"y":-40}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Rect.X != 500 || got.Rect.Y != -40 {
		t.Errorf("move: rect = %+v", got.Rect)
	}

	resp, data = do(t, ts, http.MethodPost, "/api/v1/nodes/n4/reparent", `{"parent":"n3","index":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reparent: status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Parent != "n3" {
		t.Errorf("reparent: parent = %s", got.Parent)
	}

	resp, data = do(t, ts, http.MethodPost, "/api/v1/nodes/n3/organize", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("organize node: status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); len(got.Children) != 1 || got.Children[0] != "n4" {
		t.Errorf("organize node: children = %v", got.Children)
	}

	resp, data = do(t, ts, http.MethodDelete, "/api/v1/nodes/n3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d: %s", resp.StatusCode, data)
	}
	removed := decodeBody[struct {
		Removed []tree.NodeID `json:"removed"`
	}](t, data)
	if len(removed.Removed) != 2 {
		t.Errorf("removed = %v, want n3 and n4", removed.Removed)
	}

	resp, data = do(t, ts, http.MethodPost, "/api/v1/organize", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("organize: status = %d: %s", resp.StatusCode, data)
	}
	doc, err := pkgio.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Tree.Len() != 2 {
		t.Errorf("Len = %d, want 2", doc.Tree.Len())
	}
}

func TestUpdateImage(t *testing.T) {
	_, ts := newTestServer(t, "")
	body, _ := json.Marshal(map[string]any{"image": testPNG(t)})

	resp, data := do(t, ts, http.MethodPatch, "/api/v1/nodes/n2", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Image == "" || got.Text != "A" {
		t.Errorf("image not set: %+v", got)
	}

	resp, data = do(t, ts, http.MethodPatch, "/api/v1/nodes/n2", `{"remove_image":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Image != "" {
		t.Errorf("image not removed: %+v", got)
	}
}

func TestUpdateNodeIsAtomic(t *testing.T) {
	srv, ts := newTestServer(t, "")

	resp, data := do(t, ts, http.MethodPatch, "/api/v1/nodes/n2", `{"text":"X","width":0,"height":5}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", resp.StatusCode, data)
	}
	err := srv.sess.Do(func(ed *editor.Editor) error {
		if c, _ := ed.Document().Tree.Content("n2"); c.Text != "A" {
			t.Errorf("text = %q after a rejected update, want %q", c.Text, "A")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// The last history entry is still the add of B.
	do(t, ts, http.MethodPost, "/api/v1/undo", "")
	_ = srv.sess.Do(func(ed *editor.Editor) error {
		if ed.Document().Tree.Contains("n3") {
			t.Error("undo did not remove B; the rejected update left a history entry")
		}
		return nil
	})
}

func TestReparentWithIndexIsOneUndoStep(t *testing.T) {
	srv, ts := newTestServer(t, "")

	resp, data := do(t, ts, http.MethodPost, "/api/v1/nodes/n3/reparent", `{"parent":"n1","index":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	_ = srv.sess.Do(func(ed *editor.Editor) error {
		if got := ed.Document().Tree.Children("n1"); len(got) != 2 || got[0] != "n3" {
			t.Errorf("children = %v, want n3 first", got)
		}
		return nil
	})

	do(t, ts, http.MethodPost, "/api/v1/undo", "")
	_ = srv.sess.Do(func(ed *editor.Editor) error {
		if got := ed.Document().Tree.Children("n1"); len(got) != 2 || got[0] != "n2" {
			t.Errorf("children after one undo = %v, want n2 first", got)
		}
		return nil
	})
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUndoRedo(t *testing.T) {
	_, ts := newTestServer(t, "")

	do(t, ts, http.MethodDelete, "/api/v1/nodes/n2", "")
	resp, data := do(t, ts, http.MethodPost, "/api/v1/undo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeBody[historyResponse](t, data); !got.Applied || !got.CanRedo {
		t.Errorf("undo = %+v", got)
	}
	_, data = do(t, ts, http.MethodPost, "/api/v1/redo", "")
	if got := decodeBody[historyResponse](t, data); !got.Applied || got.CanRedo {
		t.Errorf("redo = %+v", got)
	}
	_, data = do(t, ts, http.MethodPost, "/api/v1/redo", "")
	if got := decodeBody[historyResponse](t, data); got.Applied {
		t.Errorf("redo with empty stack applied: %+v", got)
	}
}

func TestErrorStatus(t *testing.T) {
	_, ts := newTestServer(t, "")
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing node", http.MethodDelete, "/api/v1/nodes/zz", "", http.StatusNotFound, "NOT_FOUND"},
		{"delete root", http.MethodDelete, "/api/v1/nodes/n1", "", http.StatusConflict, "CANNOT_REMOVE_ROOT"},
		{"reparent root", http.MethodPost, "/api/v1/nodes/n1/reparent", `{"parent":"n2"}`, http.StatusConflict, "CANNOT_REPARENT_ROOT"},
		{"cycle", http.MethodPost, "/api/v1/nodes/n2/reparent", `{"parent":"n2"}`, http.StatusConflict, "CYCLE_DETECTED"},
		{"second root", http.MethodPost, "/api/v1/nodes", `{"text":"X"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", http.MethodPost, "/api/v1/nodes", `{"parent":"n1","colour":"red"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"move without y", http.MethodPost, "/api/v1/nodes/n2/move", `{"x":1}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"negative index", http.MethodPost, "/api/v1/nodes/n2/reparent", `{"parent":"n3","index":-1}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"width only", http.MethodPatch, "/api/v1/nodes/n2", `{"width":10}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad image", http.MethodPatch, "/api/v1/nodes/n2", `{"image":"bm90IGFuIGltYWdl"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad format", http.MethodGet, "/api/v1/export/bmp", "", http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad scale", http.MethodGet, "/api/v1/export/png?scale=big", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"unsaved", http.MethodPost, "/api/v1/save", "", http.StatusBadRequest, "INVALID_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.status, data)
			}
			got := decodeBody[errorBody](t, data)
			if string(got.Error.Code) != tt.code {
				t.Errorf("code = %s, want %s", got.Error.Code, tt.code)
			}
			if got.Error.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestAddRootToEmptyMap(t *testing.T) {
	sess := session.New(editor.New(nil, nil), "", session.WithLogger(quietLogger()))
	ts := httptest.NewServer(New(sess, nil, WithLogger(quietLogger())).Handler())
	defer ts.Close()

	if resp, data := do(t, ts, http.MethodGet, "/api/v1/document", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get empty map: status = %d: %s", resp.StatusCode, data)
	}

	resp, data := do(t, ts, http.MethodPost, "/api/v1/nodes", `{"text":"Root"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if got := decodeBody[nodeResponse](t, data); got.Parent != "" || got.Text != "Root" {
		t.Errorf("root = %+v", got)
	}
}

func TestExport(t *testing.T) {
	_, ts := newTestServer(t, "")
	tests := []struct {
		path   string
		ctype  string
		prefix string
	}{
		{"/api/v1/export/svg", "image/svg+xml", "<svg"},
		{"/api/v1/export/png?scale=1", "image/png", "\x89PNG"},
		{"/api/v1/export/dot?direction=down", "text/vnd.graphviz", "digraph"},
		{"/api/v1/export/yaml", "application/yaml", "text: Root"},
		{"/api/v1/export/json?organize=true", "application/json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, data := do(t, ts, http.MethodGet, tt.path, "")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d: %s", resp.StatusCode, data)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.ctype {
				t.Errorf("Content-Type = %s, want %s", got, tt.ctype)
			}
			if resp.Header.Get("X-Document-Hash") == "" {
				t.Error("missing X-Document-Hash")
			}
			if !bytes.HasPrefix(bytes.TrimSpace(data), []byte(tt.prefix)) {
				t.Errorf("body starts with %q, want %q", firstBytes(data, 20), tt.prefix)
			}
		})
	}
}

func firstBytes(b []byte, n int) []byte {
	return b[:min(len(b), n)]
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	_, ts := newTestServer(t, path)

	do(t, ts, http.MethodPost, "/api/v1/nodes", `{"parent":"n1","text":"C"}`)
	resp, data := do(t, ts, http.MethodPost, "/api/v1/save", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	doc, err := pkgio.ImportJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Tree.Len() != 4 {
		t.Errorf("saved Len = %d, want 4", doc.Tree.Len())
	}
}

func TestMetricsRoute(t *testing.T) {
	_, ts := newTestServer(t, "", WithMetrics(metrics.New().Handler()))
	resp, _ := do(t, ts, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	_, plain := newTestServer(t, "")
	resp, _ = do(t, plain, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("metrics without collector: status = %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t, "", WithAllowedOrigins("http://localhost:3000"))
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/document", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestChangeFeed(t *testing.T) {
	srv, ts := newTestServer(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Hub().Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello Event
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	if hello.Type != EventConnected {
		t.Fatalf("first event = %s, want %s", hello.Type, EventConnected)
	}

	do(t, ts, http.MethodDelete, "/api/v1/nodes/n3", "")

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventChange || ev.Change == nil || ev.Change.Op != editor.OpDelete || ev.Change.Node != "n3" {
		t.Errorf("event = %+v", ev)
	}
}

func TestCheckOrigin(t *testing.T) {
	srv := &Server{origins: []string{"https://app.example"}}
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "localhost:8080", true},
		{"https://app.example", "localhost:8080", true},
		{"http://localhost:8080", "localhost:8080", true},
		{"https://evil.example", "localhost:8080", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := srv.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor("SOMETHING_ELSE"); got != http.StatusInternalServerError {
		t.Errorf("unknown code = %d", got)
	}
}
