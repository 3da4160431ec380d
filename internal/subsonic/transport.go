package subsonic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/shared"
	"golang.org/x/net/http2"
)

var errPoolTimeout = errors.New("timed out waiting for a connection")

// TransportConfig sizes and times out the pooled HTTP transport.
type TransportConfig struct {
	ConnectTimeout      time.Duration // dial + TLS handshake
	ReadTimeout         time.Duration // time to response headers
	WriteTimeout        time.Duration // per write on the connection
	PoolTimeout         time.Duration // time to obtain a connection, including dial
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	HTTP2               bool
	Attempts            int // connection-level attempts per request
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ConnectTimeout:      5 * time.Second,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        10 * time.Second,
		PoolTimeout:         5 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		HTTP2:               true,
		Attempts:            3,
	}
}

// NewTransportConfig applies the timeouts from sc over [DefaultTransportConfig]. Zero durations keep the default.
func NewTransportConfig(sc shared.SubsonicConfig) TransportConfig {
	tc := DefaultTransportConfig()
	tc.HTTP2 = sc.HTTP2
	if d := sc.ConnectTimeout.Duration; d > 0 {
		tc.ConnectTimeout = d
	}
	if d := sc.ReadTimeout.Duration; d > 0 {
		tc.ReadTimeout = d
	}
	if d := sc.WriteTimeout.Duration; d > 0 {
		tc.WriteTimeout = d
	}
	if d := sc.PoolTimeout.Duration; d > 0 {
		tc.PoolTimeout = d
	}
	return tc
}

// NewHTTPClient builds the pooled client used by [Client].
//
// HTTP/2 is negotiated when tc.HTTP2 is set and the transport can be configured for it; otherwise requests use HTTP/1.1.
func NewHTTPClient(tc TransportConfig, logger *log.Logger) *http.Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	dialer := &net.Dialer{Timeout: tc.ConnectTimeout, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           deadlineDialer(dialer, tc.WriteTimeout),
		MaxIdleConns:          tc.MaxIdleConns,
		MaxIdleConnsPerHost:   tc.MaxIdleConnsPerHost,
		IdleConnTimeout:       tc.IdleConnTimeout,
		TLSHandshakeTimeout:   tc.ConnectTimeout,
		ResponseHeaderTimeout: tc.ReadTimeout,
		ExpectContinueTimeout: time.Second,
	}

	if tc.HTTP2 {
		if _, err := http2.ConfigureTransports(base); err != nil {
			logger.Warn("http/2 unavailable, falling back to http/1.1", "err", err)
		}
	}

	var rt http.RoundTripper = base
	if tc.PoolTimeout > 0 {
		rt = &poolTimeoutTransport{next: rt, timeout: tc.PoolTimeout}
	}
	if tc.Attempts > 1 {
		rt = newRetryTransport(rt, tc.Attempts, logger)
	}
	return &http.Client{Transport: rt}
}

func deadlineDialer(d *net.Dialer, write time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil || write <= 0 {
			return conn, err
		}
		return &deadlineConn{Conn: conn, write: write}, nil
	}
}

// deadlineConn bounds every Write by a fresh deadline.
type deadlineConn struct {
	net.Conn
	write time.Duration
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

// poolTimeoutTransport cancels a request that has not obtained a connection within timeout.
type poolTimeoutTransport struct {
	next    http.RoundTripper
	timeout time.Duration
}

func (t *poolTimeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancelCause(req.Context())
	timer := time.AfterFunc(t.timeout, func() { cancel(errPoolTimeout) })
	release := func() {
		timer.Stop()
		cancel(nil)
	}

	trace := &httptrace.ClientTrace{GotConn: func(httptrace.GotConnInfo) { timer.Stop() }}
	resp, err := t.next.RoundTrip(req.WithContext(httptrace.WithClientTrace(ctx, trace)))
	if err != nil {
		cause := context.Cause(ctx)
		release()
		if errors.Is(cause, errPoolTimeout) {
			return nil, fmt.Errorf("%w after %s", errPoolTimeout, t.timeout)
		}
		return nil, err
	}

	resp.Body = &releaseBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type releaseBody struct {
	io.ReadCloser
	release func()
}

func (b *releaseBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

// retryTransport retries bodiless requests that fail before a response arrives.
//
// Only connection-level failures qualify; any response, whatever its status or envelope, is returned as is.
type retryTransport struct {
	next   http.RoundTripper
	policy shared.RetryPolicy
	logger *log.Logger
}

func newRetryTransport(next http.RoundTripper, attempts int, logger *log.Logger) *retryTransport {
	return &retryTransport{
		next: next,
		policy: shared.RetryPolicy{
			Attempts:  attempts,
			Backoff:   shared.ExponentialBackoff(100*time.Millisecond, time.Second),
			Retryable: isConnectionError,
		},
		logger: logger,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody {
		return t.next.RoundTrip(req)
	}

	attempt := 0
	return shared.RetryValue(req.Context(), t.policy, func(context.Context) (*http.Response, error) {
		attempt++
		resp, err := t.next.RoundTrip(req)
		if err != nil && isConnectionError(err) && attempt < t.policy.Attempts {
			t.logger.Debug("connection failed, retrying", "host", req.URL.Host, "attempt", attempt, "err", err)
		}
		return resp, err
	})
}

func isConnectionError(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, errPoolTimeout),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
