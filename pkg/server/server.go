// Package server exposes the conversation over a small HTTP API with an
// SSE event stream for UI clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/chat"
	"github.com/anthann/coffeechat/pkg/event"
	"github.com/anthann/coffeechat/pkg/logx"
	"github.com/anthann/coffeechat/pkg/menu"
)

// Server wires the chat controller and cart store behind HTTP routes.
type Server struct {
	controller *chat.Controller
	store      *cart.Store
	stream     *event.Stream
	mux        *http.ServeMux
}

// New creates a Server with pre-wired routes. The returned server's
// Stream sink must be registered with the controller by the caller.
func New(controller *chat.Controller, store *cart.Store) *Server {
	srv := &Server{
		controller: controller,
		store:      store,
		stream:     event.NewStream(),
		mux:        http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Stream returns the SSE fan-out so wiring can point the controller's
// event sink at it.
func (s *Server) Stream() *event.Stream { return s.stream }

func (s *Server) routes() {
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/cancel", s.handleCancel)
	s.mux.HandleFunc("/reset", s.handleReset)
	s.mux.HandleFunc("/messages", s.handleMessages)
	s.mux.HandleFunc("/cart", s.handleCart)
	s.mux.Handle("/events", s.stream)
}

// ServeHTTP implements http.Handler and delegates to the internal mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpServer.ListenAndServe()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(payload.Prompt)
	if prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}
	if s.controller.Responding() {
		http.Error(w, chat.ErrBusy.Error(), http.StatusConflict)
		return
	}
	// The turn outlives the request; progress flows over /events.
	go s.runTurn(prompt)
	w.WriteHeader(http.StatusAccepted)
}

// runTurn executes one accepted prompt in the background. Two prompts can
// pass the Responding check at once; the one that loses the race inside
// Submit is reported over the event stream instead of vanishing.
func (s *Server) runTurn(prompt string) {
	err := s.controller.Submit(context.Background(), prompt)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrBusy):
		logx.Warn().Msg("chat prompt dropped, a turn is already running")
		_ = s.stream.Send(event.New(event.TypeTurnError, event.ErrorData{Message: chat.ErrBusy.Error()}))
	default:
		logx.Error().Err(err).Msg("chat turn failed")
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.controller.CancelActive()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.controller.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type messageJSON struct {
		ID        string    `json:"id"`
		Role      string    `json:"role"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	}
	messages := s.controller.Messages()
	out := struct {
		Messages   []messageJSON `json:"messages"`
		Responding bool          `json:"responding"`
		Error      string        `json:"error,omitempty"`
	}{
		Messages:   make([]messageJSON, 0, len(messages)),
		Responding: s.controller.Responding(),
	}
	for _, m := range messages {
		out.Messages = append(out.Messages, messageJSON{
			ID:        m.ID,
			Role:      string(m.Role),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	if err := s.controller.Err(); err != nil {
		out.Error = err.Error()
	}
	writeJSON(w, out)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type lineJSON struct {
		ItemID      string  `json:"item_id"`
		Name        string  `json:"name"`
		Temperature string  `json:"temperature"`
		Sweetness   string  `json:"sweetness"`
		Quantity    int     `json:"quantity"`
		UnitPrice   string  `json:"unit_price"`
		Subtotal    string  `json:"subtotal"`
		RawSubtotal float64 `json:"raw_subtotal"`
	}
	snapshot := s.store.Snapshot()
	out := struct {
		Lines []lineJSON `json:"lines"`
		Total string     `json:"total"`
		Units int        `json:"units"`
	}{
		Lines: make([]lineJSON, 0, len(snapshot.Lines)),
		Total: menu.FormatPrice(snapshot.Total()),
		Units: snapshot.Units(),
	}
	for _, line := range snapshot.Lines {
		out.Lines = append(out.Lines, lineJSON{
			ItemID:      line.Item.ID,
			Name:        line.Item.Name,
			Temperature: string(line.Temperature),
			Sweetness:   string(line.Sweetness),
			Quantity:    line.Quantity,
			UnitPrice:   menu.FormatPrice(line.Item.Price),
			Subtotal:    menu.FormatPrice(line.Subtotal()),
			RawSubtotal: line.Subtotal(),
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
