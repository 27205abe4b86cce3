package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/engine"
)

// BookUpdate is the message broadcast to websocket subscribers after every
// applied action.
type BookUpdate struct {
	Seq   uint64                 `json:"seq"`
	State *domain.OrderBookState `json:"state"`
}

// Server exposes the sequencer over HTTP: action submission, state reads,
// and a websocket book feed. All writes funnel into the sequencer inbox, so
// the HTTP layer adds no ordering of its own.
type Server struct {
	seq      *engine.Sequencer
	bookHub  *hub[BookUpdate]
	upgrader websocket.Upgrader
}

type actionRequest struct {
	Identity string          `json:"identity"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
}

type actionResponse struct {
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

type digestResponse struct {
	Seq    uint64 `json:"seq"`
	Digest []byte `json:"digest"`
}

type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// New creates a server around seq. Wire PublishUpdate as the sequencer's
// state-update callback to feed the websocket hub.
func New(seq *engine.Sequencer) *Server {
	return &Server{
		seq:      seq,
		bookHub:  newHub[BookUpdate](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// PublishUpdate broadcasts a state update to all websocket subscribers.
func (s *Server) PublishUpdate(seq uint64, state *domain.OrderBookState) {
	s.bookHub.Broadcast(BookUpdate{Seq: seq, State: state})
}

// Routes returns the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/actions", s.handleAction)
	mux.HandleFunc("/v1/state", s.handleState)
	mux.HandleFunc("/v1/digest", s.handleDigest)
	mux.HandleFunc("/ws/book", s.handleBookStream)
	return mux
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
		return
	}
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, errors.New("identity is required"))
		return
	}

	kind := action.KindFromString(req.Kind)
	act, err := action.Decode(kind, req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	seq, msg, err := s.seq.Submit(r.Context(), req.Identity, act)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Seq: seq, Message: msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	state := s.seq.State()
	if state == nil {
		writeError(w, http.StatusNotFound, engine.ErrNotRegistered)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	digest, err := s.seq.Digest()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, digestResponse{Seq: s.seq.LastAppliedSeq(), Digest: digest})
}

func (s *Server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.bookHub.Subscribe(32)
	defer s.bookHub.Unsubscribe(sub)

	slog.Debug("Book stream subscriber connected", slog.String("remote", r.RemoteAddr))

	for update := range sub.ch {
		msg := outboundMessage{Type: "book", Data: update}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// statusForError maps contract rejections to HTTP statuses. Anything the
// contract rejects deterministically is a client error; only transport
// problems are 5xx.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrRecipientMismatch),
		errors.Is(err, engine.ErrUnsupportedAction),
		errors.Is(err, engine.ErrInvalidOrder),
		errors.Is(err, engine.ErrAlreadyRegistered):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotRegistered):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
