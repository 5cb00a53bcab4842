package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rfqmarket/db"
	"rfqmarket/internal/access"
	"rfqmarket/internal/auth"
	"rfqmarket/internal/cache"
	"rfqmarket/internal/lifecycle"
	"rfqmarket/internal/notify"
	"rfqmarket/internal/objectstore"
	"rfqmarket/internal/search"
	"rfqmarket/models"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input caught in the handler itself.
var errBadRequest = errors.New("bad request")

// Handler wires the HTTP surface to storage and the side collaborators.
type Handler struct {
	Store    StorageInterface
	Files    FileStore
	Notifier notify.Notifier
	Cache    cache.Cache
	CacheTTL time.Duration

	// FetchTimeout bounds object reads behind the file proxy; zero means none.
	FetchTimeout time.Duration
}

func NewHandler(store StorageInterface, files FileStore, n notify.Notifier, c cache.Cache) *Handler {
	if c == nil {
		c = cache.NewMemory()
	}
	return &Handler{Store: store, Files: files, Notifier: n, Cache: c, CacheTTL: 5 * time.Minute}
}

// PingHandler answers "ok" once the database is reachable.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("ping: database unavailable")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type envelope struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *search.Pagination `json:"pagination,omitempty"`
	Message    string             `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondPage(w http.ResponseWriter, data interface{}, p search.Pagination) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: status < 400, Message: msg})
}

// statusFor maps domain and storage errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, access.ErrForbidden), errors.Is(err, access.ErrRole):
		return http.StatusForbidden
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, db.ErrDuplicate),
		errors.Is(err, db.ErrStateChanged),
		errors.Is(err, errBadRequest),
		errors.Is(err, objectstore.ErrCategory),
		errors.Is(err, objectstore.ErrExtension),
		errors.Is(err, objectstore.ErrTooLarge),
		errors.Is(err, objectstore.ErrEmpty),
		errors.Is(err, objectstore.ErrForeignURL):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		msg = "Server error"
	}
	respondMessage(w, status, msg)
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read request body", errBadRequest)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON format", errBadRequest)
	}
	return nil
}

func actorFrom(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	a, ok := auth.ActorFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
	}
	return a, ok
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func parseUUID(s, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	return id, nil
}

// notifyAsync hands an event to the notifier without waiting for delivery.
func (h *Handler) notifyAsync(t notify.EventType, recipient, rfqID uuid.UUID, data map[string]string) {
	if h.Notifier == nil || recipient == uuid.Nil {
		return
	}
	notify.Async(h.Notifier, notify.Event{Type: t, Recipient: recipient, RFQID: rfqID, Data: data})
}
