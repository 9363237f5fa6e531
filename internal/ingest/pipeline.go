package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

const logFileName = "ingestion_log.json"

// ingestionLog records which document folders have already been ingested, so
// re-running ingestion only picks up new folders.
type ingestionLog struct {
	ProcessedFolders []string `json:"processed_folders"`
}

// Report summarizes one pipeline run.
type Report struct {
	FoldersProcessed int
	FoldersSkipped   int
	ChunksAdded      int
}

// Pipeline chunks document folders, embeds them into the vector store, and
// persists the index.
type Pipeline struct {
	chunker  *Chunker
	store    vectordb.Store
	dataDir  string
	reporter Reporter
}

func NewPipeline(store vectordb.Store, docsDir, dataDir string, reporter Reporter) *Pipeline {
	if reporter == nil {
		reporter = silentReporter{}
	}
	return &Pipeline{
		chunker:  NewChunker(docsDir),
		store:    store,
		dataDir:  dataDir,
		reporter: reporter,
	}
}

// Run ingests every document folder not recorded in the ingestion log.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	folders, err := p.chunker.DiscoverFolders()
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, errors.New("no document folders found, expected folders with .md and .json files")
	}

	processed, err := p.loadLog()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	p.reporter.Start(len(folders))
	defer p.reporter.Finish()

	for i, folder := range folders {
		name := filepath.Base(folder)
		p.reporter.Update(i+1, name)

		if processed[name] {
			report.FoldersSkipped++
			continue
		}

		chunks, err := p.chunker.ChunkFolder(folder)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", name, err)
			continue
		}
		if err := p.store.AddChunks(ctx, chunks); err != nil {
			return report, fmt.Errorf("indexing %s: %w", name, err)
		}

		processed[name] = true
		report.FoldersProcessed++
		report.ChunksAdded += len(chunks)

		if err := p.saveLog(processed); err != nil {
			return report, err
		}
	}

	if report.FoldersProcessed > 0 {
		if err := p.store.Persist(ctx, p.dataDir); err != nil {
			return report, fmt.Errorf("persisting index: %w", err)
		}
	}

	return report, nil
}

func (p *Pipeline) logPath() string {
	return filepath.Join(p.dataDir, logFileName)
}

func (p *Pipeline) loadLog() (map[string]bool, error) {
	processed := make(map[string]bool)

	data, err := os.ReadFile(p.logPath())
	if errors.Is(err, fs.ErrNotExist) {
		return processed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ingestion log: %w", err)
	}

	var lg ingestionLog
	if err := json.Unmarshal(data, &lg); err != nil {
		// A corrupt log means re-ingesting everything, which is safe.
		log.Printf("ingest: ignoring unreadable ingestion log: %v", err)
		return processed, nil
	}
	for _, name := range lg.ProcessedFolders {
		processed[name] = true
	}
	return processed, nil
}

func (p *Pipeline) saveLog(processed map[string]bool) error {
	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	lg := ingestionLog{ProcessedFolders: make([]string, 0, len(processed))}
	for name := range processed {
		lg.ProcessedFolders = append(lg.ProcessedFolders, name)
	}
	sort.Strings(lg.ProcessedFolders)

	data, err := json.MarshalIndent(lg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ingestion log: %w", err)
	}
	if err := os.WriteFile(p.logPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing ingestion log: %w", err)
	}
	return nil
}
