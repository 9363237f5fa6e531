package rag

import (
	"encoding/json"
	"strings"

	"github.com/hbukhari/ragcite/internal/config"
)

// StructuredResponse is the validated contract extracted from raw model
// output. Exactly one of the two field groups is populated, depending on the
// citation mode the orchestrator runs in.
type StructuredResponse struct {
	Answer           string
	CitationRequired bool

	// citation_limit mode
	CitationLimit int
	FilesUsed     int

	// chunk_cited mode
	UsedChunkIDs   []string
	ChunkReasoning map[string]string

	// Parsed reports whether the model output passed extraction and
	// validation. When false the remaining fields hold the safe default.
	Parsed bool
}

// SafeDefault returns the fallback response used whenever model output cannot
// be trusted: empty answer, no citations.
func SafeDefault(mode config.CitationMode) StructuredResponse {
	resp := StructuredResponse{Answer: "", CitationRequired: false}
	if mode == config.ModeChunkCited {
		resp.UsedChunkIDs = []string{}
		resp.ChunkReasoning = map[string]string{}
	}
	return resp
}

// wireResponse mirrors the JSON shape the model is instructed to produce.
type wireResponse struct {
	Answer           string            `json:"answer"`
	CitationRequired string            `json:"citation_required"`
	CitationLimit    int               `json:"citation_limit"`
	FilesUsed        int               `json:"files_used"`
	UsedChunkIDs     []string          `json:"used_chunk_ids"`
	ChunkReasoning   map[string]string `json:"chunk_reasoning"`
}

// ParseStructuredResponse extracts and validates the JSON contract from raw
// model output. It never fails: anything that cannot be extracted, parsed, or
// validated yields the safe default for the given mode.
func ParseStructuredResponse(raw string, mode config.CitationMode) StructuredResponse {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return SafeDefault(mode)
	}

	// Required keys must be present, not merely zero-valued.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &keys); err != nil {
		return SafeDefault(mode)
	}
	if _, ok := keys["answer"]; !ok {
		return SafeDefault(mode)
	}
	if _, ok := keys["citation_required"]; !ok {
		return SafeDefault(mode)
	}

	var w wireResponse
	if err := json.Unmarshal([]byte(obj), &w); err != nil {
		return SafeDefault(mode)
	}

	resp := StructuredResponse{
		Answer:           w.Answer,
		CitationRequired: strings.EqualFold(strings.TrimSpace(w.CitationRequired), "yes"),
		Parsed:           true,
	}

	switch mode {
	case config.ModeCitationLimit:
		resp.CitationLimit = w.CitationLimit
		resp.FilesUsed = w.FilesUsed

	case config.ModeChunkCited:
		ids := w.UsedChunkIDs
		if ids == nil {
			ids = []string{}
		}
		reasoning := w.ChunkReasoning
		if reasoning == nil {
			reasoning = map[string]string{}
		}
		// A reasoning entry per cited chunk, no more and no less. Anything
		// else is a partially hallucinated citation set and is discarded
		// wholesale.
		if !sameKeySet(ids, reasoning) {
			return SafeDefault(mode)
		}
		resp.UsedChunkIDs = ids
		resp.ChunkReasoning = reasoning
	}

	return resp
}

// ExtractJSONObject returns the first balanced top-level JSON object in text,
// located by brace-depth counting from the first '{'. Braces inside string
// literals are ignored. Returns false if no balanced object exists.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// sameKeySet reports whether the set of ids equals the key set of reasoning.
// Duplicate ids are collapsed, matching set semantics.
func sameKeySet(ids []string, reasoning map[string]string) bool {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	if len(idSet) != len(reasoning) {
		return false
	}
	for id := range idSet {
		if _, ok := reasoning[id]; !ok {
			return false
		}
	}
	return true
}
