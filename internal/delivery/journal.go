package delivery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// Journal appends sent payloads to an NDJSON file for debugging and replay.
type Journal struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewJournal creates a journal writing to filename.
func NewJournal(filename string) (*Journal, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Record writes one payload as a JSON line.
func (j *Journal) Record(payload models.HealthPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}
