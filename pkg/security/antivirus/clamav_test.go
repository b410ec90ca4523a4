package antivirus

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClamd reads one zINSTREAM request and answers with reply.
func fakeClamd(t *testing.T, reply string) (string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		if _, err := r.ReadString(0); err != nil {
			return
		}
		var body []byte
		size := make([]byte, 4)
		for {
			if _, err := io.ReadFull(r, size); err != nil {
				return
			}
			n := binary.BigEndian.Uint32(size)
			if n == 0 {
				break
			}
			chunk := make([]byte, n)
			if _, err := io.ReadFull(r, chunk); err != nil {
				return
			}
			body = append(body, chunk...)
		}
		received <- body
		_, _ = conn.Write([]byte(reply + "\x00"))
	}()

	return ln.Addr().String(), received
}

func TestClamAVScanner(t *testing.T) {
	t.Run("clean stream", func(t *testing.T) {
		addr, received := fakeClamd(t, "stream: OK")
		res, err := NewClamAVScanner(addr, 0).Scan(context.Background(), "a.webm", []byte("hello"))
		require.NoError(t, err)
		assert.False(t, res.Infected)
		assert.Equal(t, []byte("hello"), <-received)
	})

	t.Run("infected stream", func(t *testing.T) {
		addr, _ := fakeClamd(t, "stream: Eicar-Test-Signature FOUND")
		res, err := NewClamAVScanner(addr, 0).Scan(context.Background(), "a.pdf", []byte("X5O!P%@AP"))
		require.NoError(t, err)
		assert.True(t, res.Infected)
		assert.Equal(t, "Eicar-Test-Signature", res.ThreatName)
	})

	t.Run("unreachable daemon fails closed", func(t *testing.T) {
		res, err := NewClamAVScanner("127.0.0.1:1", 0).Scan(context.Background(), "a.pdf", []byte("x"))
		assert.Error(t, err)
		assert.True(t, res.Infected)
	})
}

func TestParseReplyError(t *testing.T) {
	res, err := parseReply("clamav", "INSTREAM size limit exceeded. ERROR")
	assert.Error(t, err)
	assert.True(t, res.Infected)
}

func TestNewWithoutAddress(t *testing.T) {
	s := New("")
	res, err := s.Scan(context.Background(), "x", []byte("x"))
	require.NoError(t, err)
	assert.False(t, res.Infected)
	assert.Equal(t, "noop", s.Name())
}
