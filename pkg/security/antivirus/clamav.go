package antivirus

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
)

// chunkSize stays well below clamd's default StreamMaxLength chunking.
const chunkSize = 1 << 20

// ClamAVScanner streams content to clamd with the zINSTREAM command.
type ClamAVScanner struct {
	address string // host:port or a unix socket path
	timeout time.Duration
}

var _ Scanner = (*ClamAVScanner)(nil)

func NewClamAVScanner(address string, timeout time.Duration) *ClamAVScanner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ClamAVScanner{address: address, timeout: timeout}
}

func (c *ClamAVScanner) Name() string {
	return "clamav"
}

func (c *ClamAVScanner) network() string {
	if strings.HasPrefix(c.address, "/") {
		return "unix"
	}
	return "tcp"
}

func (c *ClamAVScanner) Scan(ctx context.Context, _ string, data []byte) (Result, error) {
	infected := Result{Infected: true, Scanner: c.Name()}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, c.network(), c.address)
	if err != nil {
		return infected, fmt.Errorf("connecting to clamd: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return infected, fmt.Errorf("sending command: %w", err)
	}

	size := make([]byte, 4)
	for start := 0; start < len(data); start += chunkSize {
		end := min(start+chunkSize, len(data))
		binary.BigEndian.PutUint32(size, uint32(end-start))
		if _, err := conn.Write(size); err != nil {
			return infected, fmt.Errorf("sending chunk size: %w", err)
		}
		if _, err := conn.Write(data[start:end]); err != nil {
			return infected, fmt.Errorf("sending chunk: %w", err)
		}
	}
	if _, err := conn.Write([]byte{0, 0, 0, 0}); err != nil {
		return infected, fmt.Errorf("sending end marker: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		return infected, fmt.Errorf("reading reply: %w", err)
	}
	return parseReply(c.Name(), reply)
}

// parseReply interprets "stream: OK", "stream: <name> FOUND" and "... ERROR".
func parseReply(scanner, reply string) (Result, error) {
	reply = strings.TrimSpace(strings.TrimRight(reply, "\x00"))
	switch {
	case strings.HasSuffix(reply, "FOUND"):
		_, threat, _ := strings.Cut(reply, ":")
		return Result{
			Infected:   true,
			ThreatName: strings.TrimSpace(strings.TrimSuffix(threat, "FOUND")),
			Scanner:    scanner,
		}, nil
	case strings.HasSuffix(reply, "OK"):
		return Result{Scanner: scanner}, nil
	default:
		return Result{Infected: true, Scanner: scanner}, fmt.Errorf("clamd error: %s", reply)
	}
}
