package antivirus

import (
	"context"
)

// Result of a malware scan. Callers must reject the file when Infected is set.
type Result struct {
	Infected   bool
	ThreatName string
	Scanner    string
}

// Scanner inspects uploaded content. Implementations fail closed: any error
// is returned together with Infected=true.
type Scanner interface {
	Scan(ctx context.Context, filename string, data []byte) (Result, error)
	Name() string
}

// NoOpScanner accepts everything. Used when no clamd address is configured.
type NoOpScanner struct{}

var _ Scanner = NoOpScanner{}

func (NoOpScanner) Scan(context.Context, string, []byte) (Result, error) {
	return Result{Scanner: "noop"}, nil
}

func (NoOpScanner) Name() string {
	return "noop"
}

// New returns a ClamAV scanner for address, or a no-op scanner when address is empty.
func New(address string) Scanner {
	if address == "" {
		return NoOpScanner{}
	}
	return NewClamAVScanner(address, 0)
}
