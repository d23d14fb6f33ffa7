package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// StreamManager fans engine events out to the SSE subscribers of each profile.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // ProfileID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for a profile. The returned function
// unregisters it and closes the channel.
func (sm *StreamManager) Subscribe(profileID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[profileID]; !ok {
		sm.subscribers[profileID] = make(map[chan string]struct{})
	}
	sm.subscribers[profileID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[profileID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, profileID)
				}
			}
		})
	}
}

// Broadcast sends msg to every subscriber of the profile. Slow subscribers
// lose the message instead of blocking the engine.
func (sm *StreamManager) Broadcast(profileID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[profileID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping message", "profile", profileID)
		}
	}
}

// Hooks returns lifecycle hooks broadcasting progression and task events as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskValidated:   func(_ context.Context, e *domain.TaskEvent) { sm.publish(e.ProfileID, e) },
		OnTaskCompleted:   func(_ context.Context, e *domain.TaskEvent) { sm.publish(e.ProfileID, e) },
		OnModuleCompleted: func(_ context.Context, e *domain.ProgressionEvent) { sm.publish(e.ProfileID, e) },
		OnUnlock:          func(_ context.Context, e *domain.ProgressionEvent) { sm.publish(e.ProfileID, e) },
		OnChoice:          func(_ context.Context, e *domain.DialogueEvent) { sm.publish(e.ProfileID, e) },
	}
}

func (sm *StreamManager) publish(profileID string, event any) {
	if profileID == "" {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("event encode failed", "err", err)
		return
	}
	sm.Broadcast(profileID, string(data))
}

// SubscribeProfile handles GET /profiles/{profile}/events (SSE).
// The optional "types" query parameter filters by comma-separated event type.
func (s *Server) SubscribeProfile(w http.ResponseWriter, r *http.Request) {
	flusher, ok := startStream(w)
	if !ok {
		return
	}
	profileID := chi.URLParam(r, "profile")
	ch, cancel := s.streams.Subscribe(profileID)
	defer cancel()

	var types map[string]bool
	if raw := r.URL.Query().Get("types"); raw != "" {
		types = make(map[string]bool)
		for _, t := range strings.Split(raw, ",") {
			types[strings.TrimSpace(t)] = true
		}
	}

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if types != nil {
				var base domain.EventBase
				if err := json.Unmarshal([]byte(msg), &base); err == nil && !types[string(base.Type)] {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// SubscribeReload handles GET /events (SSE), announcing content changes.
func (s *Server) SubscribeReload(w http.ResponseWriter, r *http.Request) {
	events, err := s.engine.Watch(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", id)
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}
