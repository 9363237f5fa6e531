package rag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryEntry is one user/assistant exchange kept in session memory.
type MemoryEntry struct {
	ID          string
	UserMessage string
	AIResponse  string
	Timestamp   time.Time
	Metadata    map[string]any
}

// SessionMemoryInfo summarizes the memory state of one session.
type SessionMemoryInfo struct {
	HasMemory   bool `json:"has_memory"`
	MemoryCount int  `json:"memory_count"`
	HasSummary  bool `json:"has_summary"`
}

type sessionMemory struct {
	mu      sync.Mutex
	entries []MemoryEntry
	summary string
}

// MemoryStore keeps a bounded per-session conversation history with a rolling
// topic summary. Sessions are independent: operations on one session never
// block another.
type MemoryStore struct {
	maxEntries int

	mu       sync.Mutex
	sessions map[string]*sessionMemory
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 20
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		sessions:   make(map[string]*sessionMemory),
	}
}

func (s *MemoryStore) session(sessionID string) *sessionMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	sm, ok := s.sessions[sessionID]
	if !ok {
		sm = &sessionMemory{}
		s.sessions[sessionID] = sm
	}
	return sm
}

// lookup returns the session's memory without creating it, so reads for
// unknown session ids do not grow the map.
func (s *MemoryStore) lookup(sessionID string) *sessionMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

// Append records one exchange, evicting the oldest entry past the cap and
// refreshing the summary every fifth entry.
func (s *MemoryStore) Append(sessionID, userMessage, aiResponse string, metadata map[string]any) string {
	sm := s.session(sessionID)
	sm.mu.Lock()
	defer sm.mu.Unlock()

	entry := MemoryEntry{
		ID:          uuid.NewString(),
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
	sm.entries = append(sm.entries, entry)
	if len(sm.entries) > s.maxEntries {
		sm.entries = sm.entries[len(sm.entries)-s.maxEntries:]
	}
	if len(sm.entries)%5 == 0 {
		sm.summary = buildSummary(sm.entries)
	}
	return entry.ID
}

// Context assembles the memory block injected ahead of retrieved chunks:
// summary, then query-relevant exchanges, then a recency fallback when too few
// were relevant. Returns "" for sessions with no history.
func (s *MemoryStore) Context(sessionID, query string, limit int) string {
	sm := s.lookup(sessionID)
	if sm == nil {
		return ""
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.entries) == 0 && sm.summary == "" {
		return ""
	}

	var parts []string
	if sm.summary != "" {
		parts = append(parts, "## CONVERSATION SUMMARY\n"+sm.summary)
	}

	relevant := findRelevant(sm.entries, query, limit)
	if len(relevant) > 0 {
		lines := []string{"## RELEVANT PREVIOUS DISCUSSION"}
		for _, e := range relevant {
			lines = append(lines, fmt.Sprintf("User: %s", e.UserMessage))
			lines = append(lines, fmt.Sprintf("Assistant: %s...", truncateRunes(e.AIResponse, 200)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(relevant) < 3 && len(sm.entries) > 0 {
		recent := sm.entries
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		lines := []string{"## RECENT CONVERSATION"}
		for _, e := range recent {
			lines = append(lines, fmt.Sprintf("User: %s", e.UserMessage))
			lines = append(lines, fmt.Sprintf("Assistant: %s...", truncateRunes(e.AIResponse, 150)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n\n"
}

// Info reports whether the session has memory and a summary.
func (s *MemoryStore) Info(sessionID string) SessionMemoryInfo {
	s.mu.Lock()
	sm, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return SessionMemoryInfo{}
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return SessionMemoryInfo{
		HasMemory:   len(sm.entries) > 0,
		MemoryCount: len(sm.entries),
		HasSummary:  sm.summary != "",
	}
}

// Clear drops all memory for the session.
func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// findRelevant scans most recent first and keeps entries whose combined user
// message and response share at least one word with the query, up to limit,
// ordered by overlap.
func findRelevant(entries []MemoryEntry, query string, limit int) []MemoryEntry {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return nil
	}

	type scored struct {
		entry   MemoryEntry
		overlap int
	}
	var matches []scored
	for i := len(entries) - 1; i >= 0 && len(matches) < limit; i-- {
		overlap := overlapCount(queryWords, entries[i].UserMessage+" "+entries[i].AIResponse)
		if overlap > 0 {
			matches = append(matches, scored{entries[i], overlap})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].overlap > matches[j].overlap
	})

	out := make([]MemoryEntry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}

func buildSummary(entries []MemoryEntry) string {
	recent := entries
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	lines := []string{"Recent topics:"}
	for _, e := range recent {
		lines = append(lines, fmt.Sprintf("- User asked about: %s...", truncateRunes(e.UserMessage, 100)))
	}
	return strings.Join(lines, "\n")
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func overlapCount(queryWords map[string]struct{}, text string) int {
	n := 0
	for w := range wordSet(text) {
		if _, ok := queryWords[w]; ok {
			n++
		}
	}
	return n
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
