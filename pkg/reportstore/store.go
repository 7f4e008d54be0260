package reportstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

const dateLayout = "2006-01-02"

type recordKind string

const (
	kindReport recordKind = "report"
	kindSample recordKind = "sample"
	kindAlert  recordKind = "alert"
)

// envelope is the single record shape written to the day file; exactly
// one payload field is populated, selected by Kind.
type envelope struct {
	Kind   recordKind             `cbor:"kind"`
	Report *model.ExecutionReport `cbor:"report,omitempty"`
	Sample *model.MonitorSample   `cbor:"sample,omitempty"`
	Alert  *model.AlertEvent      `cbor:"alert,omitempty"`
}

// Day is the decoded content of one calendar day's summary file.
type Day struct {
	Reports []model.ExecutionReport
	Samples []model.MonitorSample
	Alerts  []model.AlertEvent
}

// Store is the Report Store. Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a Store writing into dir, creating it if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report store directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// AppendReport records one ExecutionReport under its FinishedAt date.
func (s *Store) AppendReport(rec model.ExecutionReport) error {
	return s.append(rec.FinishedAt, envelope{Kind: kindReport, Report: &rec})
}

// AppendSample records one monitor cycle sample under its CycleAt date.
func (s *Store) AppendSample(sample model.MonitorSample) error {
	return s.append(sample.CycleAt, envelope{Kind: kindSample, Sample: &sample})
}

// AppendAlert records one fleet alert under its Timestamp date.
func (s *Store) AppendAlert(event model.AlertEvent) error {
	return s.append(event.Timestamp, envelope{Kind: kindAlert, Alert: &event})
}

func (s *Store) append(at time.Time, rec envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := at.UTC().Format(dateLayout)
	path := s.pathFor(date)

	existing, err := readEnvelopes(path)
	if err != nil {
		return fmt.Errorf("reading existing report day %s: %w", date, err)
	}
	existing = append(existing, rec)

	var buf bytes.Buffer
	enc := encMode.NewEncoder(&buf)
	for _, e := range existing {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding report record for %s: %w", date, err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing temporary report file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming report file %s into place: %w", path, err)
	}
	return nil
}

// Read returns the decoded content of the day file for date (UTC,
// "2006-01-02"). A missing file yields an empty Day, not an error.
func Read(dir, date string) (Day, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s.report", date))
	envs, err := readEnvelopes(path)
	if err != nil {
		return Day{}, err
	}

	var day Day
	for _, e := range envs {
		switch e.Kind {
		case kindReport:
			if e.Report != nil {
				day.Reports = append(day.Reports, *e.Report)
			}
		case kindSample:
			if e.Sample != nil {
				day.Samples = append(day.Samples, *e.Sample)
			}
		case kindAlert:
			if e.Alert != nil {
				day.Alerts = append(day.Alerts, *e.Alert)
			}
		}
	}
	return day, nil
}

func (s *Store) pathFor(date string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.report", date))
}

// readEnvelopes decodes every well-formed envelope in path, in order,
// stopping at (and discarding) the first record that fails to decode —
// the signature of a torn trailing write. A missing file yields a nil
// slice.
func readEnvelopes(path string) ([]envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening report file %s: %w", path, err)
	}
	defer f.Close()

	var out []envelope
	dec := decMode.NewDecoder(f)
	for {
		var e envelope
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			// A torn trailing record: keep what decoded cleanly so far.
			break
		}
		out = append(out, e)
	}
	return out, nil
}
