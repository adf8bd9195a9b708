package webproxy

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Serve accepts connections on ln and hands them to a fixed pool of workers through a bounded queue.
// When the queue is full, accepting blocks until a worker frees up.
//
// Serve blocks until accepting fails or ctx is cancelled. On cancellation it closes ln,
// lets the workers finish what is already queued and returns nil once they have exited.
func (p *Proxy) Serve(ctx context.Context, ln net.Listener) error {
	queue := make(chan net.Conn, p.queueSize)
	g, gctx := errgroup.WithContext(ctx)

	// transactions run to completion even while shutting down
	txnCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.work(txnCtx, queue)
			return nil
		})
	}
	g.Go(func() error {
		defer close(queue)
		return p.dispatch(gctx, ln, queue)
	})

	stop := context.AfterFunc(gctx, func() { ln.Close() })
	defer stop()

	p.log.Info().
		Str("addr", ln.Addr().String()).
		Int("workers", p.workers).
		Int("queue", p.queueSize).
		Msg("Proxy listening")
	return g.Wait()
}

func (p *Proxy) dispatch(ctx context.Context, ln net.Listener, queue chan<- net.Conn) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		p.log.Trace().Str("remote", remoteAddr(conn)).Msg("Accepted connection")
		select {
		case queue <- conn:
		case <-ctx.Done():
			conn.Close()
			return nil
		}
	}
}

func (p *Proxy) work(ctx context.Context, queue <-chan net.Conn) {
	for conn := range queue {
		p.serveConn(ctx, conn)
	}
}

// serveConn runs one transaction and always closes the connection afterwards.
func (p *Proxy) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer p.recover(conn)
	p.Handle(ctx, conn)
}

// recover keeps the worker alive if a transaction panics.
func (p *Proxy) recover(conn net.Conn) {
	if err := recover(); err != nil {
		p.log.WithLevel(zerolog.PanicLevel).
			Interface("error", err).
			Str("remote", remoteAddr(conn)).
			Msg("Panic in transaction handler")
	}
}

// Server is a proxy serving in the background.
type Server struct {
	Addr   net.Addr
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs Serve on ln in a new goroutine.
func (p *Proxy) Start(ln net.Listener) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Addr:   ln.Addr(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.err = p.Serve(ctx, ln)
	}()
	return s
}

// Shutdown stops accepting, waits for the workers to exit and returns the error Serve returned.
func (s *Server) Shutdown() error {
	s.cancel()
	<-s.done
	return s.err
}

// Done is closed once Serve has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}
