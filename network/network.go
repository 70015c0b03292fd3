package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// MaxMessageBytes bounds a single inbound request.
const MaxMessageBytes = 1024

var ErrResponseTooLarge = errors.New("response exceeds size limit")

// CloseOrLog closes conn and logs a failure instead of returning it.
func CloseOrLog(conn io.Closer) {
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).Warn("error closing connection")
	}
}

// Request opens a connection to addr, writes payload and reads until the remote side closes.
// At most limit bytes are accepted. The context deadline, if any, covers the whole exchange.
func Request(ctx context.Context, addr string, payload []byte, limit int64) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer CloseOrLog(conn)

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}
	// Unblock the read if ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write to %s: %w", addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// Half close tells the peer the request is complete.
		tcp.CloseWrite()
	}

	resp, err := io.ReadAll(io.LimitReader(conn, limit+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read from %s: %w", addr, err)
	}
	if int64(len(resp)) > limit {
		return nil, fmt.Errorf("%s: %w", addr, ErrResponseTooLarge)
	}
	return resp, nil
}

// ReadMessage reads one request from conn. Requests are small, so a single read of at most
// MaxMessageBytes is taken as the whole message, with a trailing line ending trimmed.
func ReadMessage(conn net.Conn, timeout time.Duration) (string, error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return "", err
		}
	}
	buf := make([]byte, MaxMessageBytes)
	n, err := conn.Read(buf)
	if err != nil && !(err == io.EOF && n > 0) {
		return "", err
	}
	return strings.TrimRight(string(buf[:n]), "\r\n"), nil
}
