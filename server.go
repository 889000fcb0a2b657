package main

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Server binds a listener and drives the accept loop, bounding concurrent
// connections and running the background expiration sweeper.
type Server struct {
	config *Config
	store  *Store
	stats  *Stats
	clock  Clock

	listener net.Listener
	sem      chan struct{}
	stopCh   chan struct{}

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewServer builds a Server bound to config. A nil clock uses the system
// clock.
func NewServer(config *Config, clock Clock) *Server {
	if clock == nil {
		clock = realClock{}
	}
	return &Server{
		config: config,
		store:  NewStore(clock, 0),
		stats:  NewStats(),
		clock:  clock,
		sem:    make(chan struct{}, config.MaxClients),
		stopCh: make(chan struct{}),
	}
}

// Start binds the listener, launches the sweeper, and runs the accept loop
// until Stop is called. It blocks the calling goroutine.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	logInfof("mcline listening on %s", address)

	s.wg.Add(1)
	go s.sweepLoop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return nil
			}
			logWarnf("accept error: %v", err)
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetKeepAlive(s.config.TCPKeepAlive)
		}

		select {
		case s.sem <- struct{}{}:
		default:
			// Over the connection-count limit: reject immediately rather
			// than queue, keeping accept latency bounded.
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			handleConnection(conn, s.store, s.stats, s.clock, s.config)
		}()
	}
}

// Stop closes the listener and waits for in-flight connections and the
// sweeper to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	s.mu.Unlock()

	close(s.stopCh)
	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
}

func (s *Server) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			n := s.store.Sweep()
			if n > 0 {
				logDebugf("sweeper reclaimed %d expired keys", n)
			}
		}
	}
}

// Stats returns a snapshot of the server's operation counters.
func (s *Server) Stats() Snapshot {
	return s.stats.Snapshot()
}
