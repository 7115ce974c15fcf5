package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jupark12/pdf-diff/models"
)

// FileRecorder keeps job records in memory and mirrors each one to a JSON file in
// dataDir.
type FileRecorder struct {
	mu      sync.RWMutex
	records map[string]models.JobRecord
	dataDir string
}

// NewFileRecorder creates dataDir if needed and loads the records already in it.
func NewFileRecorder(dataDir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	r := &FileRecorder{
		records: make(map[string]models.JobRecord),
		dataDir: dataDir,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Record stores rec and writes it to disk.
func (r *FileRecorder) Record(_ context.Context, rec models.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[rec.Key()] = rec
	return r.persist(rec)
}

// List returns the records of sessionID, or all records when sessionID is empty.
func (r *FileRecorder) List(_ context.Context, sessionID string) ([]models.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.JobRecord, 0, len(r.records))
	for _, rec := range r.records {
		if sessionID == "" || rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *FileRecorder) persist(rec models.JobRecord) error {
	path := filepath.Join(r.dataDir, rec.Key()+".json")

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write job record: %w", err)
	}
	return nil
}

// load reads every record file in dataDir. Unreadable files are logged and skipped.
func (r *FileRecorder) load() error {
	files, err := os.ReadDir(r.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(r.dataDir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Failed to read job record %s: %v", path, err)
			continue
		}

		var rec models.JobRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Printf("Failed to unmarshal job record %s: %v", path, err)
			continue
		}
		r.records[rec.Key()] = rec
	}

	log.Printf("Loaded %d job records from disk", len(r.records))
	return nil
}
