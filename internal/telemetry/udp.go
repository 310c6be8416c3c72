package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	lderrors "github.com/rileyhilliard/labdash/internal/errors"
)

// DefaultReceiveTimeout is how long a UDPSource waits for one datagram.
const DefaultReceiveTimeout = 12 * time.Second

// UDPSource receives JSON telemetry datagrams on a bound UDP socket.
// The socket is bound once by ListenUDP and reused for every Acquire.
type UDPSource struct {
	conn     *net.UDPConn
	kind     Kind
	channels int
	timeout  time.Duration

	mu     sync.Mutex // serializes reads on buf
	buf    []byte
	closed bool
}

// ListenUDP binds a UDP socket on bind:port. An empty bind listens on all
// interfaces; port 0 picks a free port (see Addr). Bind failures are
// returned as errors with code BIND.
func ListenUDP(bind string, port int, kind Kind, channels int, timeout time.Duration) (*UDPSource, error) {
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	if channels <= 0 {
		channels = 1
	}

	addr := net.JoinHostPort(bind, strconv.Itoa(port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, lderrors.WrapWithCode(err, lderrors.ErrBind,
			fmt.Sprintf("Invalid listen address %s", addr),
			"Check the bind and port settings for this source")
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, lderrors.WrapWithCode(err, lderrors.ErrBind,
			fmt.Sprintf("Can't listen for %s telemetry on %s", kind, addr),
			"Another process may own this port. Pick a different port or stop the other listener.")
	}

	return &UDPSource{
		conn:     conn,
		kind:     kind,
		channels: channels,
		timeout:  timeout,
		buf:      make([]byte, MaxDatagramSize),
	}, nil
}

// Addr returns the bound local address.
func (s *UDPSource) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Acquire waits for one datagram and decodes it. It returns ErrTimeout when
// nothing arrives within the receive timeout or before ctx's deadline,
// whichever is sooner, and an ErrDecode-wrapped error for bad payloads.
func (s *UDPSource) Acquire(ctx context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Reading{}, net.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Reading{}, err
	}

	n, _, err := s.conn.ReadFromUDP(s.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Reading{}, ErrTimeout
		}
		return Reading{}, err
	}

	return DecodePayload(s.buf[:n], s.kind, s.channels)
}

// Close releases the socket. A blocked Acquire returns promptly.
// Calling Close more than once is safe.
func (s *UDPSource) Close() error {
	err := s.conn.Close()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
