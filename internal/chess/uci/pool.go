package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

var ErrPoolClosed = errors.New("engine pool closed")

// SpawnFunc starts one engine session. Tests replace it with pipe backed
// fakes.
type SpawnFunc func(ctx context.Context) (*Session, error)

type PoolConfig struct {
	BinaryPath string
	Options    Options
	// Capacity bounds the number of idle engines kept warm. Leases beyond
	// it spawn a fresh process, which is stopped on release if the idle set
	// is full.
	Capacity int
	Spawn    SpawnFunc
}

// Pool hands out engine sessions for exclusive use. A released session is
// kept warm for the next lease unless it failed or the idle set is full.
type Pool struct {
	spawn    SpawnFunc
	capacity int

	mu     sync.Mutex
	total  int
	leased map[*Session]struct{}
	closed bool
	idle   chan *Session
}

type PoolStats struct {
	Live     int
	Leased   int
	Idle     int
	Capacity int
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	spawn := cfg.Spawn
	if spawn == nil {
		if cfg.BinaryPath == "" {
			return nil, fmt.Errorf("binary path required")
		}
		path, err := resolveBinary(cfg.BinaryPath)
		if err != nil {
			return nil, fmt.Errorf("stockfish binary check: %w", err)
		}
		if err := validateOptions(cfg.Options); err != nil {
			return nil, err
		}
		opt := cfg.Options
		spawn = func(ctx context.Context) (*Session, error) {
			return NewSession(ctx, path, opt)
		}
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}

	return &Pool{
		spawn:    spawn,
		capacity: capacity,
		leased:   make(map[*Session]struct{}),
		idle:     make(chan *Session, capacity),
	}, nil
}

func resolveBinary(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return exec.LookPath(path)
}

// Acquire leases a ready engine, reusing an idle one when available and
// spawning a new process otherwise. It never waits for another lease to be
// released.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquire engine: %w", err)
		}

		select {
		case session := <-p.idle:
			if s, ok := p.reuse(ctx, session); ok {
				return s, nil
			}
			continue
		default:
		}

		return p.create(ctx)
	}
}

func (p *Pool) reuse(ctx context.Context, session *Session) (*Session, bool) {
	if session == nil {
		return nil, false
	}
	if !session.Healthy() {
		p.discard(session)
		return nil, false
	}
	if err := session.NewGame(ctx); err != nil {
		p.discard(session)
		return nil, false
	}
	p.track(session)
	return session, true
}

// Release returns a leased session. A non-nil err means the session can no
// longer be trusted and its process is stopped.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}

	p.mu.Lock()
	_, ok := p.leased[session]
	delete(p.leased, session)
	closed := p.closed
	p.mu.Unlock()

	if !ok {
		_ = session.Close()
		return
	}
	if err != nil || closed || !session.Healthy() {
		p.discard(session)
		return
	}

	select {
	case p.idle <- session:
	default:
		p.discard(session)
	}
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Live:     p.total,
		Leased:   len(p.leased),
		Idle:     len(p.idle),
		Capacity: p.capacity,
	}
}

// Close stops idle engines. Leased engines are stopped when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case session := <-p.idle:
			if session == nil {
				continue
			}
			if err := session.Close(); err != nil {
				errs = append(errs, err)
			}
			p.decrement()
		default:
			return errors.Join(errs...)
		}
	}
}

func (p *Pool) create(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	p.total++
	p.mu.Unlock()

	session, err := p.spawn(ctx)
	if err != nil {
		p.decrement()
		return nil, fmt.Errorf("spawn engine: %w", err)
	}
	p.track(session)
	return session, nil
}

func (p *Pool) track(session *Session) {
	p.mu.Lock()
	p.leased[session] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) discard(session *Session) {
	if session != nil {
		_ = session.Close()
	}
	p.decrement()
}

func (p *Pool) decrement() {
	p.mu.Lock()
	if p.total > 0 {
		p.total--
	}
	p.mu.Unlock()
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 16 {
		return 16
	}
	return cpu
}
