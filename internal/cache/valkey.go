package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/config"
)

// ValkeyProvider talks RESP2 to a Valkey or Redis compatible server. Each command runs on
// its own short-lived connection, which keeps the provider free of pool state; artifact
// traffic is a handful of commands per process lifetime.
type ValkeyProvider struct {
	cfg  config.ValkeyConfig
	dial func(ctx context.Context) (net.Conn, error)
}

// ServerError is an error reply sent by the server. It is never retried.
type ServerError string

func (e ServerError) Error() string { return "valkey: " + string(e) }

// NewValkeyProvider builds a provider and pings the server so that bad addresses or
// credentials fail at startup.
func NewValkeyProvider(ctx context.Context, cfg config.ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	p := &ValkeyProvider{cfg: cfg}
	p.dial = p.dialTCP

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("valkey ping %s: %w", cfg.Addr, err)
	}
	return p, nil
}

// Ping checks connectivity and authentication.
func (p *ValkeyProvider) Ping(ctx context.Context) error {
	r, err := p.do(ctx, "PING")
	if err != nil {
		return err
	}
	if r.kind != '+' || string(r.data) != "PONG" {
		return fmt.Errorf("unexpected PING reply %q", r.data)
	}
	return nil
}

// Get returns the value stored at key, or ErrCacheMiss.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := p.do(ctx, "GET", []byte(key))
	if err != nil {
		return nil, err
	}
	if r.null {
		return nil, ErrCacheMiss
	}
	if r.kind != '$' {
		return nil, fmt.Errorf("unexpected GET reply type %q", r.kind)
	}
	return r.data, nil
}

// Set stores value at key, with a millisecond expiry when ttl is positive.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := [][]byte{[]byte(key), value}
	if ttl > 0 {
		args = append(args, []byte("PX"), strconv.AppendInt(nil, ttl.Milliseconds(), 10))
	}
	r, err := p.do(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if r.kind != '+' || string(r.data) != "OK" {
		return fmt.Errorf("unexpected SET reply %q", r.data)
	}
	return nil
}

// Del removes key; a missing key is not an error.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", []byte(key))
	return err
}

// Close is a no-op; connections are not pooled.
func (p *ValkeyProvider) Close() error { return nil }

// do runs one command, retrying transport failures up to MaxRetries times.
func (p *ValkeyProvider) do(ctx context.Context, cmd string, args ...[]byte) (reply, error) {
	attempts := p.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return reply{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		r, err := p.roundTrip(ctx, cmd, args)
		if err == nil {
			return r, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return reply{}, lastErr
}

func (p *ValkeyProvider) roundTrip(ctx context.Context, cmd string, args [][]byte) (reply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return reply{}, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	s := &session{conn: conn, r: bufio.NewReader(conn), cfg: p.cfg}
	if p.cfg.Password != "" {
		auth := [][]byte{[]byte(p.cfg.Password)}
		if p.cfg.Username != "" {
			auth = [][]byte{[]byte(p.cfg.Username), []byte(p.cfg.Password)}
		}
		if _, err := s.call("AUTH", auth); err != nil {
			return reply{}, fmt.Errorf("auth: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if _, err := s.call("SELECT", [][]byte{[]byte(strconv.Itoa(p.cfg.DB))}); err != nil {
			return reply{}, fmt.Errorf("select db %d: %w", p.cfg.DB, err)
		}
	}
	return s.call(cmd, args)
}

func (p *ValkeyProvider) dialTCP(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}
	if !p.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	host, _, err := net.SplitHostPort(p.cfg.Addr)
	if err != nil {
		host = p.cfg.Addr
	}
	td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}}
	return td.DialContext(ctx, "tcp", p.cfg.Addr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se ServerError
	return !errors.As(err, &se)
}

type reply struct {
	kind byte
	data []byte
	null bool
}

type session struct {
	conn net.Conn
	r    *bufio.Reader
	cfg  config.ValkeyConfig
}

func (s *session) call(cmd string, args [][]byte) (reply, error) {
	buf := appendCommand(nil, cmd, args)
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := s.conn.Write(buf); err != nil {
		return reply{}, err
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	return readReply(s.r)
}

// appendCommand encodes cmd and args as a RESP array of bulk strings.
func appendCommand(buf []byte, cmd string, args [][]byte) []byte {
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)+1), 10)
	buf = append(buf, '\r', '\n')
	buf = appendBulk(buf, []byte(cmd))
	for _, a := range args {
		buf = appendBulk(buf, a)
	}
	return buf
}

func appendBulk(buf, b []byte) []byte {
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(b)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, b...)
	return append(buf, '\r', '\n')
}

func readReply(r *bufio.Reader) (reply, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return reply{}, err
	}
	line, err := readLine(r)
	if err != nil {
		return reply{}, err
	}
	switch kind {
	case '+', ':':
		return reply{kind: kind, data: line}, nil
	case '-':
		return reply{}, ServerError(line)
	case '_':
		return reply{kind: kind, null: true}, nil
	case '$':
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return reply{}, fmt.Errorf("bad bulk length %q", line)
		}
		if size < 0 {
			return reply{kind: kind, null: true}, nil
		}
		data := make([]byte, size+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return reply{}, err
		}
		if data[size] != '\r' || data[size+1] != '\n' {
			return reply{}, errors.New("bulk string missing CRLF")
		}
		return reply{kind: kind, data: data[:size]}, nil
	default:
		return reply{}, fmt.Errorf("unexpected RESP prefix %q", kind)
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, errors.New("RESP line missing CR")
	}
	return append([]byte(nil), line[:len(line)-2]...), nil
}
