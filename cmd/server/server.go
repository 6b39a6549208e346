package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/FlatDB"
	"github.com/nickyhof/FlatDB/auth"
	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/db"
	"github.com/nickyhof/FlatDB/metrics"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server. With neither Credentials nor Tokens set,
// every connection runs as the server identity.
type Options struct {
	MaxConnections int                   // bounds concurrent connection handlers, 0 = unlimited
	Credentials    *auth.CredentialStore // enables LOGIN
	Tokens         *auth.TokenIssuer     // enables AUTH JWT and tokens from LOGIN
	Logger         *slog.Logger
}

// Server is a TCP server that exposes the FlatDB engine. Each connection
// gets its own engine, so the selected database and the transaction
// buffer are per connection. Statements from all connections run one at
// a time.
type Server struct {
	listener net.Listener
	instance *FlatDB.Instance
	identity core.Identity
	opts     Options
	logger   *slog.Logger
	mu       sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup

	tlsConfig *tls.Config
	connPool  *ants.Pool

	connMu      sync.Mutex
	connections map[net.Conn]struct{}

	metricsServer *http.Server
}

// NewServer creates a new server for the given instance.
func NewServer(instance *FlatDB.Instance, identity core.Identity, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		instance:    instance,
		identity:    identity,
		opts:        opts,
		logger:      logger,
		done:        make(chan struct{}),
		connections: make(map[net.Conn]struct{}),
	}
}

func (s *Server) authRequired() bool {
	return s.opts.Credentials != nil || s.opts.Tokens != nil
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.serve(listener)
}

// StartTLS begins listening for TLS connections on the specified address.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	s.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	listener, err := tls.Listen("tcp", addr, s.tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	return s.serve(listener)
}

// TLSEnabled reports whether the server was started with StartTLS.
func (s *Server) TLSEnabled() bool {
	return s.tlsConfig != nil
}

func (s *Server) serve(listener net.Listener) error {
	s.listener = listener

	if s.opts.MaxConnections > 0 {
		connPool, err := ants.NewPool(s.opts.MaxConnections, ants.WithPanicHandler(func(v any) {
			s.logger.Error("connection handler panic", "panic", v)
		}))
		if err != nil {
			listener.Close()
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		s.connPool = connPool
	}

	s.logger.Info("server listening", "addr", listener.Addr().String(), "tls", s.TLSEnabled(), "auth", s.authRequired())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// StartMetrics serves Prometheus metrics on addr at /metrics.
func (s *Server) StartMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("metrics listening", "addr", listener.Addr().String())
	return nil
}

// Stop closes the listener and every open connection, then waits for
// the handlers to finish.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()

	if s.connPool != nil {
		_ = s.connPool.ReleaseTimeout(3 * time.Second)
		s.connPool = nil
	}
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.metricsServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Error("accept error", "error", err)
				continue
			}
		}

		s.connMu.Lock()
		s.connections[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		if s.connPool != nil {
			if err := s.connPool.Submit(func() {
				defer s.wg.Done()
				s.handleConnection(conn)
			}); err != nil {
				s.wg.Done()
				s.forget(conn)
				s.logger.Error("failed to submit connection handler", "error", err)
			}
		} else {
			go func() {
				defer s.wg.Done()
				s.handleConnection(conn)
			}()
		}
	}
}

func (s *Server) forget(conn net.Conn) {
	conn.Close()
	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.forget(conn)

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	connID := uuid.NewString()
	logger := s.logger.With("conn", connID, "remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	engine := s.instance.Engine(s.identity)
	engine.Logger = logger
	state := &ConnectionState{}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.Debug("read error", "error", err)
			}
			return
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if strings.HasPrefix(query, "{") {
			request, err := DecodeRequest([]byte(query))
			if err != nil {
				if !s.write(conn, Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}, logger) {
					return
				}
				continue
			}
			query = strings.TrimSpace(request.Query)
		}

		lower := strings.ToLower(query)
		if lower == "quit" || lower == "exit" {
			logger.Info("client disconnected")
			return
		}

		var response Response
		switch {
		case isAuthCommand(query):
			response = s.handleAuth(query, state)
			if identity := state.Identity(); response.Success && identity != nil {
				engine.Identity = *identity
			}
		case s.authRequired() && !state.IsAuthenticated():
			response = Response{
				Success: false,
				Error:   "authentication required: use LOGIN <user> <password> or AUTH JWT <token>",
			}
		default:
			response = s.executeQuery(engine, query)
		}

		if !s.write(conn, response, logger) {
			return
		}
	}
}

func (s *Server) write(conn net.Conn, response Response, logger *slog.Logger) bool {
	data, err := EncodeResponse(response)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		return true
	}
	if _, err := conn.Write(data); err != nil {
		logger.Debug("write error", "error", err)
		return false
	}
	return true
}

func (s *Server) executeQuery(engine *db.Engine, query string) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := engine.Execute(query)
	if err != nil {
		response := Response{Success: false, Error: err.Error()}
		// a partly applied COMMIT still reports what it did
		if r, ok := result.(db.CommitResult); ok && r.Replayed > 0 {
			response.Type = "commit"
			response.Result, _ = json.Marshal(r)
		}
		return response
	}

	switch r := result.(type) {
	case db.QueryResult:
		data, _ := json.Marshal(r)
		return Response{Success: true, Type: "query", Result: data}

	case db.CommitResult:
		if r.Ignored {
			return Response{Success: true, Type: "ignored"}
		}
		data, _ := json.Marshal(r)
		return Response{Success: true, Type: "commit", Result: data}

	default:
		return Response{Success: true, Type: "unknown"}
	}
}
