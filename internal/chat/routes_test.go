package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hbukhari/ragcite/internal/citations"
	"github.com/hbukhari/ragcite/internal/config"
	"github.com/hbukhari/ragcite/internal/db"
	"github.com/hbukhari/ragcite/internal/llm"
	"github.com/hbukhari/ragcite/internal/rag"
	"github.com/hbukhari/ragcite/internal/vectordb"
)

type scriptedProvider struct {
	queryResponse string
	nameResponse  string
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	content := p.queryResponse
	if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "session name") {
		content = p.nameResponse
	}
	return &llm.CompletionResponse{Content: content}, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

type staticStore struct {
	chunks []vectordb.Chunk
}

func (s *staticStore) AddChunks(context.Context, []vectordb.Chunk) error { return nil }

func (s *staticStore) Search(_ context.Context, _ string, limit int) ([]vectordb.SearchResult, error) {
	n := limit
	if n > len(s.chunks) {
		n = len(s.chunks)
	}
	out := make([]vectordb.SearchResult, n)
	for i := 0; i < n; i++ {
		out[i] = vectordb.SearchResult{Chunk: s.chunks[i]}
	}
	return out, nil
}

func (s *staticStore) ChunksByFile(context.Context, string) ([]vectordb.Chunk, error) {
	return s.chunks, nil
}

func (s *staticStore) ChunksByIDs(context.Context, []string) ([]vectordb.Chunk, error) {
	return s.chunks, nil
}

func (s *staticStore) ChunksByHeader(context.Context, string, string) ([]vectordb.Chunk, error) {
	return s.chunks, nil
}

func (s *staticStore) Persist(context.Context, string) error { return nil }
func (s *staticStore) Load(context.Context, string) error    { return nil }
func (s *staticStore) Count() int                            { return len(s.chunks) }

type noopResolver struct{}

func (noopResolver) ResolveChunk(context.Context, string, string) (string, error) {
	return "/tmp/citation.html", nil
}

func (noopResolver) ResolveChunkList(_ context.Context, ids []string) ([]citations.FileCitation, error) {
	return []citations.FileCitation{{FileID: "fi_1", ChunkIDs: ids, Path: "/tmp/citation.html"}}, nil
}

func testService(t *testing.T) (*Service, *chi.Mux) {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	provider := &scriptedProvider{
		queryResponse: `{"answer": "The mean is the average.", "citation_required": "no", "citation_limit": 0, "files_used": 0}`,
		nameResponse:  `{"session_name": "Statistics Basics", "user_query": "q"}`,
	}
	cfg := config.DefaultConfig()
	store := &staticStore{chunks: []vectordb.Chunk{
		{ChunkID: "chk_a", FileID: "fi_1", Text: "The mean is the average.", Header: "Averages", Page: "1"},
	}}
	retriever := rag.NewRetriever(store, 5*time.Second)
	memory := rag.NewMemoryStore(cfg.MaxMemories)
	orch := rag.NewOrchestrator(provider, cfg.Model, retriever, memory, noopResolver{}, cfg)

	svc := NewService(NewStore(d), orch, provider, cfg.Model)
	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	return svc, r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQueryCreatesSession(t *testing.T) {
	svc, r := testService(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/chat/query", map[string]string{
		"query":   "what is the mean",
		"user_id": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status      string `json:"status"`
		Answer      string `json:"answer"`
		SessionID   string `json:"session_id"`
		SessionName string `json:"session_name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "success" || resp.Answer != "The mean is the average." {
		t.Errorf("resp = %+v", resp)
	}
	if resp.SessionID == "" {
		t.Fatal("no session created")
	}
	if resp.SessionName != "Statistics Basics" {
		t.Errorf("session name = %q", resp.SessionName)
	}

	// Both sides of the exchange were persisted.
	msgs, err := svc.Store().SessionMessages(context.Background(), resp.SessionID, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestQueryUnknownSession(t *testing.T) {
	_, r := testService(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat/query", map[string]string{
		"query":      "hello",
		"session_id": "missing",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestQueryValidation(t *testing.T) {
	_, r := testService(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat/query", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	_, r := testService(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/chat/sessions", map[string]any{
		"user_id":      "u1",
		"session_name": "My Session",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []sessionSummary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SessionName != "My Session" {
		t.Errorf("list = %+v", list)
	}
	if list[0].LastChatTimeAgo != "just now" {
		t.Errorf("time ago = %q", list[0].LastChatTimeAgo)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/user/u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("user list status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("details status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/chat/sessions/"+created.SessionID, map[string]string{
		"session_name": "Renamed",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Renamed") {
		t.Errorf("update body = %s", w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/"+created.SessionID+"/full", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("full status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/chat/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("details after delete = %d, want 404", w.Code)
	}
}

func TestSessionMessagesEndpoint(t *testing.T) {
	svc, r := testService(t)
	ctx := context.Background()

	sess, err := svc.Store().CreateSession(ctx, "u1", "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Store().AddMessage(ctx, sess.SessionID, "user", fmt.Sprintf("m%d", i), nil); err != nil {
			t.Fatal(err)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/"+sess.SessionID+"/messages?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		TotalMessages int              `json:"total_messages"`
		Messages      []map[string]any `json:"messages"`
		Limit         int              `json:"limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalMessages != 3 || len(resp.Messages) != 2 || resp.Limit != 2 {
		t.Errorf("resp = %+v", resp)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/sessions/missing/messages", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d", w.Code)
	}
}

func TestClearMemoryEndpoint(t *testing.T) {
	svc, r := testService(t)

	svc.orch.Memory().Append("s1", "q", "a", nil)
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat/memory/s1/clear", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.orch.Memory().Info("s1").HasMemory {
		t.Error("memory not cleared")
	}
}
