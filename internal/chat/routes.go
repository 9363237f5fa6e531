package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hbukhari/ragcite/internal/llm"
	"github.com/hbukhari/ragcite/internal/rag"
)

// Service ties the chat store to the query pipeline.
type Service struct {
	store    *Store
	orch     *rag.Orchestrator
	provider llm.Provider
	model    string
}

// NewService creates the chat service.
func NewService(store *Store, orch *rag.Orchestrator, provider llm.Provider, model string) *Service {
	return &Service{store: store, orch: orch, provider: provider, model: model}
}

// Store returns the underlying session store.
func (svc *Service) Store() *Store { return svc.store }

// RegisterRoutes mounts the chat API under /api/v1/chat.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Post("/query", queryHandler(svc))
		r.Post("/memory/{sessionID}/clear", clearMemoryHandler(svc))
		r.Get("/ws", wsHandler(svc))

		r.Post("/sessions", createSessionHandler(svc))
		r.Get("/sessions/all", allSessionsHandler(svc))
		r.Get("/sessions/user/{userID}", userSessionsHandler(svc))
		r.Get("/sessions/{sessionID}", sessionDetailsHandler(svc))
		r.Get("/sessions/{sessionID}/full", sessionFullHandler(svc))
		r.Get("/sessions/{sessionID}/messages", sessionMessagesHandler(svc))
		r.Put("/sessions/{sessionID}", updateSessionHandler(svc))
		r.Delete("/sessions/{sessionID}", deleteSessionHandler(svc))
	})
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type queryResponse struct {
	*rag.Result
	SessionName string    `json:"session_name"`
	Timestamp   time.Time `json:"timestamp"`
}

// answerQuery resolves the session, runs the pipeline, and persists both
// sides of the exchange. Shared by the HTTP and WebSocket entry points.
func (svc *Service) answerQuery(r *http.Request, req queryRequest) (*queryResponse, int, error) {
	ctx := r.Context()

	var sessionName string
	if req.SessionID != "" {
		sess, err := svc.store.GetSession(ctx, req.SessionID)
		if errors.Is(err, ErrNotFound) {
			return nil, http.StatusNotFound, err
		}
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		sessionName = sess.SessionName
	} else {
		sessionName = rag.GenerateSessionName(ctx, svc.provider, svc.model, req.Query)
		sess, err := svc.store.CreateSession(ctx, req.UserID, sessionName, nil)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		req.SessionID = sess.SessionID
	}

	result, err := svc.orch.ProcessQuery(ctx, req.Query, req.SessionID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if _, err := svc.store.AddMessage(ctx, req.SessionID, "user", req.Query, nil); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	_, err = svc.store.AddMessage(ctx, req.SessionID, "assistant", result.Answer, map[string]any{
		"citation_required": result.CitationRequired,
		"citations":         result.Citations,
		"memory_used":       result.MemoryUsed,
	})
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return &queryResponse{
		Result:      result,
		SessionName: sessionName,
		Timestamp:   time.Now().UTC(),
	}, http.StatusOK, nil
}

func queryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Query == "" {
			http.Error(w, "query is required", http.StatusBadRequest)
			return
		}

		resp, status, err := svc.answerQuery(r, req)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func clearMemoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		svc.orch.Memory().Clear(sessionID)
		writeJSON(w, http.StatusOK, map[string]string{
			"message":    "Memory cleared",
			"session_id": sessionID,
		})
	}
}

type createSessionRequest struct {
	UserID      string         `json:"user_id"`
	SessionName string         `json:"session_name"`
	Metadata    map[string]any `json:"metadata"`
}

func createSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
		}

		sess, err := svc.store.CreateSession(r.Context(), req.UserID, req.SessionName, req.Metadata)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id":    sess.SessionID,
			"session_name":  sess.SessionName,
			"user_id":       sess.UserID,
			"created_at":    sess.CreatedAt,
			"updated_at":    sess.UpdatedAt,
			"message_count": 0,
		})
	}
}

// sessionSummary is the list-view projection of a session.
type sessionSummary struct {
	SessionID       string    `json:"session_id"`
	SessionName     string    `json:"session_name"`
	UserID          string    `json:"user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	MessageCount    int       `json:"message_count"`
	LastChatTimeAgo string    `json:"last_chat_time_ago"`
}

func (svc *Service) summarize(r *http.Request, sessions []Session) ([]sessionSummary, error) {
	out := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		count, err := svc.store.MessageCount(r.Context(), sess.SessionID)
		if err != nil {
			return nil, err
		}
		out = append(out, sessionSummary{
			SessionID:       sess.SessionID,
			SessionName:     sess.SessionName,
			UserID:          sess.UserID,
			CreatedAt:       sess.CreatedAt,
			UpdatedAt:       sess.UpdatedAt,
			MessageCount:    count,
			LastChatTimeAgo: TimeAgo(sess.UpdatedAt),
		})
	}
	return out, nil
}

func allSessionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := paging(r, 100, 1000)
		sessions, err := svc.store.AllSessions(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries, err := svc.summarize(r, sessions)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func userSessionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		limit, offset := paging(r, 50, 100)
		sessions, err := svc.store.UserSessions(r.Context(), userID, limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries, err := svc.summarize(r, sessions)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func sessionDetailsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, svc)
		if !ok {
			return
		}
		summaries, err := svc.summarize(r, []Session{*sess})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summaries[0])
	}
}

func sessionFullHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, svc)
		if !ok {
			return
		}
		messages, err := svc.store.SessionMessages(r.Context(), sess.SessionID, 1000, 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if messages == nil {
			messages = []Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session":  sess,
			"messages": messages,
		})
	}
}

func sessionMessagesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, svc)
		if !ok {
			return
		}
		limit, offset := paging(r, 100, 1000)
		messages, err := svc.store.SessionMessages(r.Context(), sess.SessionID, limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		total, err := svc.store.MessageCount(r.Context(), sess.SessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out := make([]map[string]any, 0, len(messages))
		for _, m := range messages {
			out = append(out, map[string]any{
				"message_id": m.MessageID,
				"role":       m.Role,
				"content":    m.Content,
				"timestamp":  m.Timestamp,
				"time_ago":   TimeAgo(m.Timestamp),
				"metadata":   m.Metadata,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id":     sess.SessionID,
			"session_name":   sess.SessionName,
			"total_messages": total,
			"messages":       out,
			"limit":          limit,
			"offset":         offset,
		})
	}
}

type updateSessionRequest struct {
	SessionName string         `json:"session_name"`
	Metadata    map[string]any `json:"metadata"`
}

func updateSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		var req updateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		sess, err := svc.store.UpdateSession(r.Context(), sessionID, req.SessionName, req.Metadata)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		count, err := svc.store.MessageCount(r.Context(), sessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id":         sess.SessionID,
			"session_name":       sess.SessionName,
			"updated_at":         sess.UpdatedAt,
			"message_count":      count,
			"last_chat_time_ago": TimeAgo(sess.UpdatedAt),
		})
	}
}

func deleteSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		err := svc.store.DeleteSession(r.Context(), sessionID)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Session memory dies with the session.
		svc.orch.Memory().Clear(sessionID)
		writeJSON(w, http.StatusOK, map[string]string{
			"message":    "Session deleted successfully",
			"session_id": sessionID,
		})
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, svc *Service) (*Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := svc.store.GetSession(r.Context(), sessionID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func paging(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
