package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hbukhari/ragcite/internal/config"
	"github.com/hbukhari/ragcite/internal/llm"
)

const citationLimitRules = `SMART CITATION RULES:
1. Answer ONLY if the question is DIRECTLY covered by the context.
2. Count UNIQUE file ids in the context:
   - 1 file used -> "files_used": 1, "citation_limit": 1
   - 2 files used -> "files_used": 2, "citation_limit": 2
   - 3 or more files -> "files_used": 3, "citation_limit": 3
3. Multiple chunks from the same file count as 1 file.
4. "citation_required": "yes" ONLY if the answer uses the context.

JSON ONLY - NO OTHER TEXT!

Respond in this exact JSON format:
{
  "answer": "Your detailed answer here...",
  "citation_required": "yes" or "no",
  "citation_limit": 0,
  "files_used": 0
}`

const chunkCitedRules = `CITATION RULES:
1. Answer ONLY if the question is DIRECTLY covered by the context.
2. List in "used_chunk_ids" the chunk ids you actually used, copied exactly
   from the [chunk_id: ...] tags in the context.
3. For every id in "used_chunk_ids" add an entry to "chunk_reasoning"
   explaining how that chunk supports the answer. No extra keys.
4. "citation_required": "yes" ONLY if the answer uses the context.

JSON ONLY - NO OTHER TEXT!

Respond in this exact JSON format:
{
  "answer": "Your detailed answer here...",
  "citation_required": "yes" or "no",
  "used_chunk_ids": ["chk_..."],
  "chunk_reasoning": {"chk_...": "how this chunk supports the answer"}
}`

// buildQueryPrompt assembles the full prompt: optional memory block, retrieved
// context, the question, and the citation contract for the active mode.
func buildQueryPrompt(mode config.CitationMode, memoryContext, contextText, query string) string {
	rules := citationLimitRules
	if mode == config.ModeChunkCited {
		rules = chunkCitedRules
	}

	var b strings.Builder
	if memoryContext != "" {
		b.WriteString(memoryContext)
	}
	b.WriteString("# DOCUMENT KNOWLEDGE\n")
	b.WriteString(contextText)
	b.WriteString("\n\n")
	if memoryContext != "" {
		b.WriteString("# CURRENT QUESTION\n")
		b.WriteString(query)
		b.WriteString("\n\nAnswer based on both conversation history and document knowledge above.\nBe consistent with previous discussions.\n\n")
	} else {
		b.WriteString("# QUESTION\n")
		b.WriteString(query)
		b.WriteString("\n\nAnswer based on the document knowledge above.\n\n")
	}
	b.WriteString(rules)
	return b.String()
}

// GenerateSessionName asks the model to name a session from its first query.
// Falls back to a truncation of the query if the model output is unusable.
func GenerateSessionName(ctx context.Context, provider llm.Provider, model, query string) string {
	prompt := fmt.Sprintf(`Based on the user query intent, generate the session name.
Output should be in strict JSON format with no additional text or markdown.

User Query: %s

Output format:
{"session_name": "session name based on the user query intent", "user_query": "actual user query"}`, query)

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Model:    model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return fallbackSessionName(query)
	}

	obj, ok := ExtractJSONObject(resp.Content)
	if !ok {
		return fallbackSessionName(query)
	}
	var parsed struct {
		SessionName string `json:"session_name"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil || strings.TrimSpace(parsed.SessionName) == "" {
		return fallbackSessionName(query)
	}
	return strings.TrimSpace(parsed.SessionName)
}

func fallbackSessionName(query string) string {
	name := strings.TrimSpace(truncateRunes(query, 40))
	if name == "" {
		return "New Chat"
	}
	return name
}
