package vectordb

import (
	"context"
	"math"
	"os"
	"testing"
)

// mockEmbedder returns deterministic embeddings based on text content.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text. Similar texts
// produce similar vectors because shared characters contribute to the same
// positions.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func testChunks() []Chunk {
	return []Chunk{
		{
			ChunkID:   "chk_aaa",
			FileID:    "fi_1",
			Text:      "3.1 Simple Linear Regression fits a line to the data",
			Header:    "Linear Regression",
			Subheader: "Simple Linear Regression",
			Page:      "61",
			ChunkSize: 9,
		},
		{
			ChunkID:   "chk_bbb",
			FileID:    "fi_1",
			Text:      "Residual standard error measures the lack of fit",
			Header:    "Linear Regression",
			Page:      "62-63",
			ChunkSize: 8,
		},
		{
			ChunkID:   "chk_ccc",
			FileID:    "fi_2",
			Text:      "Cross-validation estimates test error by resampling",
			Header:    "Resampling Methods",
			Page:      "175",
			ChunkSize: 7,
		},
	}
}

func setupStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.AddChunks(context.Background(), testChunks()); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	return store
}

func TestChromemStoreSearch(t *testing.T) {
	store := setupStore(t)

	results, err := store.Search(context.Background(), "linear regression line fit", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Chunk.ChunkID == "" || r.Chunk.FileID == "" {
			t.Errorf("result missing identifiers: %+v", r.Chunk)
		}
	}
}

func TestChromemStoreSearchEmptyIndex(t *testing.T) {
	store, err := NewChromemStore(newMockEmbedder(16))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	results, err := store.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestChromemStoreChunksByFile(t *testing.T) {
	store := setupStore(t)

	chunks, err := store.ChunksByFile(context.Background(), "fi_1")
	if err != nil {
		t.Fatalf("ChunksByFile: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks for fi_1, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.FileID != "fi_1" {
			t.Errorf("chunk %s has wrong file id %s", c.ChunkID, c.FileID)
		}
	}
}

func TestChromemStoreChunksByIDs(t *testing.T) {
	store := setupStore(t)

	chunks, err := store.ChunksByIDs(context.Background(), []string{"chk_aaa", "chk_ccc"})
	if err != nil {
		t.Fatalf("ChunksByIDs: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	got := map[string]Chunk{}
	for _, c := range chunks {
		got[c.ChunkID] = c
	}
	if got["chk_aaa"].FileID != "fi_1" {
		t.Errorf("chk_aaa resolved to file %s, want fi_1", got["chk_aaa"].FileID)
	}
	if got["chk_ccc"].FileID != "fi_2" {
		t.Errorf("chk_ccc resolved to file %s, want fi_2", got["chk_ccc"].FileID)
	}
}

func TestChromemStoreChunksByHeader(t *testing.T) {
	store := setupStore(t)

	chunks, err := store.ChunksByHeader(context.Background(), "fi_1", "Linear Regression")
	if err != nil {
		t.Fatalf("ChunksByHeader: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 section chunks, got %d", len(chunks))
	}

	// The same header in another file must not leak in.
	chunks, err = store.ChunksByHeader(context.Background(), "fi_2", "Linear Regression")
	if err != nil {
		t.Fatalf("ChunksByHeader: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for fi_2 with that header, got %d", len(chunks))
	}
}

func TestChromemStoreMetadataRoundTrip(t *testing.T) {
	store := setupStore(t)

	chunks, err := store.ChunksByIDs(context.Background(), []string{"chk_bbb"})
	if err != nil {
		t.Fatalf("ChunksByIDs: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Page != "62-63" {
		t.Errorf("page = %q, want 62-63", c.Page)
	}
	if c.ChunkSize != 8 {
		t.Errorf("chunk size = %d, want 8", c.ChunkSize)
	}
	if c.Header != "Linear Regression" {
		t.Errorf("header = %q", c.Header)
	}
}

func TestChromemStorePersistLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := setupStore(t)
	if err := store.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(dir + "/chromem.gob.gz"); err != nil {
		t.Fatalf("expected persisted file: %v", err)
	}

	restored, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Count() != 3 {
		t.Errorf("expected 3 chunks after load, got %d", restored.Count())
	}
}
