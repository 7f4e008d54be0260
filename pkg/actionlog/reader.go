package actionlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aquactl/aquactl/pkg/model"
)

// Read returns every well-formed ActionRecord in the day's log file
// for date (UTC, "2006-01-02"). A malformed trailing line — the
// signature of a torn write during a crash — is skipped rather than
// failing the whole read. A missing file yields an empty slice, not
// an error: nothing has rotated into existence for that day yet.
func Read(dir, date string) ([]model.ActionRecord, error) {
	path := filepath.Join(dir, fmt.Sprintf("actions-%s.log", date))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening action log %s: %w", path, err)
	}
	defer f.Close()

	var records []model.ActionRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec model.ActionRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("reading action log %s: %w", path, err)
	}
	return records, nil
}
