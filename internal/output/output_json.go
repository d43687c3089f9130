package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/tkjaer/ifroute/internal/shared"
)

// JSONOutput writes one JSON document per report to a file or stdout
type JSONOutput struct {
	mu       sync.Mutex
	file     *os.File
	enc      *json.Encoder
	toStdout bool
}

var _ Output = (*JSONOutput)(nil)

// NewJSONOutput writes to stdout when filename is empty and appends to
// filename otherwise.
func NewJSONOutput(filename string) (*JSONOutput, error) {
	if filename == "" {
		// Output to stdout
		return &JSONOutput{
			file:     os.Stdout,
			enc:      json.NewEncoder(os.Stdout),
			toStdout: true,
		}, nil
	}
	// Reports accumulate across runs
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONOutput{
		file:     f,
		enc:      json.NewEncoder(f),
		toStdout: false,
	}, nil
}

func (j *JSONOutput) WriteReport(run *shared.ReportRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.enc.Encode(run)
}

func (j *JSONOutput) Close() error {
	if j.toStdout {
		return nil
	}
	return j.file.Close()
}
