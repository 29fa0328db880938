package receiver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// Writer defines the interface for payload output writers
type Writer interface {
	Write(payload *models.HealthPayload) error
	Close() error
}

// StdoutWriter writes payloads to stdout
type StdoutWriter struct {
	out    io.Writer
	format string // "json" or "ndjson"
	mu     sync.Mutex
}

// NewStdoutWriter creates a new stdout writer
func NewStdoutWriter(out io.Writer, format string) *StdoutWriter {
	return &StdoutWriter{
		out:    out,
		format: format,
	}
}

// Write writes a payload to stdout
func (w *StdoutWriter) Write(payload *models.HealthPayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var data []byte
	var err error

	if w.format == "ndjson" {
		data, err = json.Marshal(payload)
	} else {
		data, err = json.MarshalIndent(payload, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	data = append(data, '\n')

	_, err = w.out.Write(data)
	return err
}

// Close is a no-op for stdout writer
func (w *StdoutWriter) Close() error {
	return nil
}

// FileWriter writes payloads to individual files in a directory
type FileWriter struct {
	dir    string
	format string
	mu     sync.Mutex
}

// NewFileWriter creates a new file writer
func NewFileWriter(dir string, format string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &FileWriter{
		dir:    dir,
		format: format,
	}, nil
}

// Write writes a payload to a file named by its device and timestamp.
func (w *FileWriter) Write(payload *models.HealthPayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stamp := strings.NewReplacer(":", "", "+", "_").Replace(payload.Timestamp)
	filename := fmt.Sprintf("health_%s_%s.json", payload.DeviceID, stamp)
	path := filepath.Join(w.dir, filename)

	var data []byte
	var err error

	if w.format == "ndjson" {
		data, err = json.Marshal(payload)
	} else {
		data, err = json.MarshalIndent(payload, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Close is a no-op for file writer
func (w *FileWriter) Close() error {
	return nil
}

// MultiWriter writes to multiple destinations
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a writer that writes to multiple destinations
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write writes to all underlying writers
func (w *MultiWriter) Write(payload *models.HealthPayload) error {
	for _, writer := range w.writers {
		if err := writer.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all underlying writers
func (w *MultiWriter) Close() error {
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			return err
		}
	}
	return nil
}
