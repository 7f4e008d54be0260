package actionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aquactl/aquactl/pkg/model"
)

const dateLayout = "2006-01-02"

// Sink is the append-only, single-producer writer for ActionRecords.
// It is safe for concurrent Append calls; they serialize through an
// internal mutex matching the spec's "single producer" requirement.
type Sink struct {
	mu sync.Mutex

	dir         string
	currentDate string
	file        *os.File
}

// NewSink creates a Sink writing into dir, creating it if absent.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating action log directory %s: %w", dir, err)
	}
	return &Sink{dir: dir}, nil
}

// Append writes one record, rotating to the file matching the
// record's own timestamp date if necessary. Records written near
// midnight go to the file corresponding to their own date, per spec.
func (s *Sink) Append(rec model.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := rec.Timestamp.UTC().Format(dateLayout)
	if s.file == nil || date != s.currentDate {
		if err := s.rotate(date); err != nil {
			return err
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding action record for %s: %w", rec.DeviceID, err)
	}
	line = append(line, '\n')

	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("writing action record to %s: %w", s.file.Name(), err)
	}
	return nil
}

func (s *Sink) rotate(date string) error {
	if s.file != nil {
		s.file.Close()
	}

	path := filepath.Join(s.dir, fmt.Sprintf("actions-%s.log", date))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening action log %s: %w", path, err)
	}

	s.file = f
	s.currentDate = date
	return nil
}

// Close releases the currently open file, if any.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
