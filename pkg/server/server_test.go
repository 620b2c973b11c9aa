package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/chat"
	"github.com/anthann/coffeechat/pkg/menu"
	"github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/tool"
	"github.com/anthann/coffeechat/pkg/tool/builtin"
)

type stubSession struct {
	content string
	block   chan struct{} // optional: hold the response until closed
}

func (s *stubSession) wait(ctx context.Context) error {
	if s.block == nil {
		return nil
	}
	select {
	case <-s.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubSession) Respond(ctx context.Context, _ model.Input, _ model.Options) (*model.Turn, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &model.Turn{Content: s.content}, nil
}

func (s *stubSession) StreamRespond(ctx context.Context, _ model.Input, _ model.Options, cb model.StreamCallback) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return cb(model.Snapshot{Content: s.content, Final: true})
}

func (s *stubSession) Close() error { return nil }

type stubRuntime struct {
	content string
	block   chan struct{}
}

func (r *stubRuntime) CreateSession(context.Context, string, []model.ToolDescriptor) (model.Session, error) {
	return &stubSession{content: r.content, block: r.block}, nil
}

func (r *stubRuntime) Availability(context.Context) model.Availability {
	return model.MarkAvailable()
}

func newTestServer(t *testing.T) (*Server, *cart.Store, *chat.Controller) {
	t.Helper()
	store := cart.NewStore(menu.DefaultCatalog())
	registry := tool.NewRegistry()
	if err := registry.Register(builtin.NewViewCartTool(store)); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	sessions := chat.NewSessionManager(&stubRuntime{content: "Happy to help!"}, registry)
	config := func() chat.GenerationConfig {
		return chat.GenerationConfig{Instructions: "barista", Temperature: 0.7, Streaming: true}
	}
	// A nil sink drops events; the SSE path has its own tests.
	controller := chat.NewController(sessions, registry, store, config, nil)
	return New(controller, store), store, controller
}

func TestChatRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "wrong method", method: http.MethodGet, body: "", want: http.StatusMethodNotAllowed},
		{name: "invalid json", method: http.MethodPost, body: "{", want: http.StatusBadRequest},
		{name: "blank prompt", method: http.MethodPost, body: `{"prompt":"   "}`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestChatAcceptsPromptAndRunsTurn(t *testing.T) {
	srv, _, controller := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"prompt":"hello"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	waitForIdleWithMessages(t, controller, 2)
	messages := controller.Messages()
	if messages[1].Text != "Happy to help!" {
		t.Fatalf("assistant text = %q", messages[1].Text)
	}
}

func TestMessagesEndpoint(t *testing.T) {
	srv, _, controller := newTestServer(t)
	if err := controller.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Messages []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"messages"`
		Responding bool `json:"responding"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("message count = %d", len(body.Messages))
	}
	if body.Messages[0].Role != "user" || body.Messages[1].Role != "assistant" {
		t.Fatalf("roles = %s, %s", body.Messages[0].Role, body.Messages[1].Role)
	}
	if body.Responding {
		t.Fatal("responding should be false after the turn")
	}
}

func TestCartEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	if _, err := store.AddLine("latte", "hot", "regular", 2); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Lines []struct {
			ItemID   string `json:"item_id"`
			Quantity int    `json:"quantity"`
			Subtotal string `json:"subtotal"`
		} `json:"lines"`
		Total string `json:"total"`
		Units int    `json:"units"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Lines) != 1 || body.Lines[0].ItemID != "latte" || body.Lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v", body.Lines)
	}
	if body.Total != "¥70.00" || body.Units != 2 {
		t.Fatalf("total = %s, units = %d", body.Total, body.Units)
	}
}

func TestResetEndpointClearsState(t *testing.T) {
	srv, store, controller := newTestServer(t)
	if err := controller.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := store.AddLine("latte", "hot", "regular", 1); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(controller.Messages()) != 0 {
		t.Fatal("messages survived reset")
	}
	if store.Snapshot().Units() != 0 {
		t.Fatal("cart survived reset")
	}
}

func TestCancelEndpointAllowedMethods(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/cancel", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	req = httptest.NewRequest(http.MethodPost, "/cancel", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatBusyRaceLoserReportsTurnError(t *testing.T) {
	store := cart.NewStore(menu.DefaultCatalog())
	registry := tool.NewRegistry()
	block := make(chan struct{})
	defer close(block)
	sessions := chat.NewSessionManager(&stubRuntime{content: "done", block: block}, registry)
	config := func() chat.GenerationConfig {
		return chat.GenerationConfig{Instructions: "barista", Temperature: 0.7, Streaming: true}
	}
	controller := chat.NewController(sessions, registry, store, config, nil)
	srv := New(controller, store)
	srv.Stream().SetHeartbeat(0)

	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()
	resp, err := httpSrv.Client().Get(httpSrv.URL + "/events")
	if err != nil {
		t.Fatalf("connect events: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	for i := 0; i < 2; i++ {
		if _, err := reader.ReadString('\n'); err != nil {
			t.Fatalf("read greeting: %v", err)
		}
	}

	// The first turn blocks inside the session. A second prompt that
	// passed the Responding check loses inside Submit; the drop must be
	// visible on the event stream, not swallowed.
	go srv.runTurn("first")
	waitForResponding(t, controller)
	srv.runTurn("second")

	frame := readFrame(t, reader)
	if !strings.Contains(frame, "event: turn_error") {
		t.Fatalf("frame = %q", frame)
	}
	if !strings.Contains(frame, chat.ErrBusy.Error()) {
		t.Fatalf("frame missing busy message: %q", frame)
	}
}

func waitForResponding(t *testing.T, controller *chat.Controller) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if controller.Responding() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("turn never started")
}

func readFrame(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var frame strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if line == "\n" {
			if frame.Len() == 0 {
				continue
			}
			return frame.String()
		}
		frame.WriteString(line)
	}
}

func waitForIdleWithMessages(t *testing.T, controller *chat.Controller, count int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !controller.Responding() && len(controller.Messages()) >= count {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("turn did not settle: responding=%v messages=%d", controller.Responding(), len(controller.Messages()))
}
