package fakeshelf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/shelfhub/shelfclient/internal/codec"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/remote"
)

// JSON-RPC style codes for transport failures.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeUnauthorized   = -32000
)

// request mirrors connection.RPCRequest with params left encoded so each
// method can decode them into its own types.
type request struct {
	ID     any               `json:"id"`
	Method string            `json:"method"`
	Params []cbor.RawMessage `json:"params"`
}

// Server serves a Ledger over POST /rpc and a WebSocket upgrade on /rpc.
type Server struct {
	Ledger *Ledger

	addr        string
	token       string
	listener    net.Listener
	http        *http.Server
	upgrader    gorilla.Upgrader
	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
	log         logger.Logger

	mu    sync.Mutex
	conns map[*gorilla.Conn]struct{}
	wg    sync.WaitGroup
}

type ServerOption func(*Server)

// RequireToken rejects calls that do not present token.
func RequireToken(token string) ServerOption {
	return func(s *Server) {
		s.token = token
	}
}

func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates a server for ledger. Use "127.0.0.1:0" for a random port.
func NewServer(addr string, ledger *Ledger, opts ...ServerOption) *Server {
	s := &Server{
		Ledger:      ledger,
		addr:        addr,
		upgrader:    gorilla.Upgrader{Subprotocols: []string{"cbor"}},
		marshaler:   models.CborMarshaler{},
		unmarshaler: models.CborUnmarshaler{},
		log:         logger.Nop(),
		conns:       make(map[*gorilla.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	s.http = &http.Server{Handler: mux}
	return s
}

func (s *Server) Start() error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("fake shelf server stopped", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener and every open WebSocket, then waits for handlers.
func (s *Server) Stop() error {
	err := s.http.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the endpoint for scheme, e.g. "ws" or "http".
func (s *Server) URL(scheme string) string {
	return fmt.Sprintf("%s://%s", scheme, s.Address())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) authorized(header http.Header) bool {
	if s.token == "" {
		return true
	}
	return strings.TrimPrefix(header.Get("Authorization"), "Bearer ") == s.token
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if gorilla.IsWebSocketUpgrade(r) {
		s.serveWebSocket(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeHTTP(w, http.StatusBadRequest, s.failure(nil, CodeParseError, err.Error()))
		return
	}
	var req request
	if err := s.unmarshaler.Unmarshal(body, &req); err != nil {
		s.writeHTTP(w, http.StatusBadRequest, s.failure(nil, CodeParseError, "Parse error"))
		return
	}
	if !s.authorized(r.Header) {
		s.writeHTTP(w, http.StatusUnauthorized, s.failure(req.ID, CodeUnauthorized, "unauthorized"))
		return
	}
	s.writeHTTP(w, http.StatusOK, s.dispatch(r.Context(), &req))
}

func (s *Server) writeHTTP(w http.ResponseWriter, status int, res connection.RPCResponse[any]) {
	data, err := s.marshaler.Marshal(res)
	if err != nil {
		s.log.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("failed to write response", "error", err)
	}
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	authed := s.authorized(r.Header)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
	}()

	ctx, cancel := context.WithCancel(context.Background())

	var writeMu sync.Mutex
	write := func(res connection.RPCResponse[any]) {
		data, err := s.marshaler.Marshal(res)
		if err != nil {
			s.log.Error("failed to encode response", "error", err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteMessage(gorilla.BinaryMessage, data); err != nil {
			s.log.Debug("failed to write response", "error", err)
		}
	}

	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req request
		if err := s.unmarshaler.Unmarshal(data, &req); err != nil {
			write(s.failure(nil, CodeParseError, "Parse error"))
			continue
		}
		if req.Method == connection.Authenticate.String() {
			var token string
			if err := s.param(&req, 0, &token); err != nil {
				write(s.failure(req.ID, CodeInvalidParams, err.Error()))
				continue
			}
			authed = s.token == "" || token == s.token
			if !authed {
				write(s.failure(req.ID, CodeUnauthorized, "unauthorized"))
				continue
			}
			write(s.success(req.ID, remote.Outcome[remote.Done]{Ok: &remote.Done{}}))
			continue
		}
		if !authed {
			write(s.failure(req.ID, CodeUnauthorized, "unauthorized"))
			continue
		}
		// Served concurrently so a held call does not block the socket.
		inflight.Add(1)
		go func(req request) {
			defer inflight.Done()
			write(s.dispatch(ctx, &req))
		}(req)
	}
}

func (s *Server) success(id, result any) connection.RPCResponse[any] {
	return connection.RPCResponse[any]{ID: id, Result: &result}
}

func (s *Server) failure(id any, code int, msg string) connection.RPCResponse[any] {
	return connection.RPCResponse[any]{ID: id, Error: &connection.RPCError{Code: code, Message: msg}}
}

func (s *Server) param(req *request, i int, dst any) error {
	if i >= len(req.Params) {
		return fmt.Errorf("missing param %d", i)
	}
	return s.unmarshaler.Unmarshal(req.Params[i], dst)
}

func outcome[T any](v T, err error) any {
	if err != nil {
		reason := err.Error()
		var rej remote.Rejected
		if errors.As(err, &rej) {
			reason = rej.Reason
		}
		return remote.Outcome[T]{Err: &reason}
	}
	return remote.Outcome[T]{Ok: &v}
}

func wireAll(l models.ShelfList) []remote.WireShelf {
	out := make([]remote.WireShelf, 0, len(l))
	for _, sh := range l {
		out = append(out, remote.ToWire(sh))
	}
	return out
}

//nolint:gocyclo
func (s *Server) dispatch(ctx context.Context, req *request) connection.RPCResponse[any] {
	var (
		a, b   string
		before bool
		ref    []string
	)
	switch connection.RPCFunction(req.Method) {
	case connection.GetUserShelves:
		if err := s.param(req, 0, &a); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		l, err := s.Ledger.GetUserShelves(ctx, a)
		return s.success(req.ID, outcome(wireAll(l), err))

	case connection.GetRecentShelves:
		var p remote.RecentParams
		if len(req.Params) > 0 {
			if err := s.param(req, 0, &p); err != nil {
				return s.failure(req.ID, CodeInvalidParams, err.Error())
			}
		}
		l, err := s.Ledger.GetRecentShelves(ctx, p.Query())
		return s.success(req.ID, outcome(wireAll(l), err))

	case connection.ReorderProfileShelf:
		if err := s.param(req, 0, &a); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		if err := s.param(req, 1, &ref); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		if err := s.param(req, 2, &before); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		if len(ref) > 0 {
			b = ref[0]
		}
		err := s.Ledger.ReorderProfileShelf(ctx, a, b, before)
		return s.success(req.ID, outcome(remote.Done{}, err))

	case connection.GetShelf:
		if err := s.param(req, 0, &a); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		sh, err := s.Ledger.GetShelf(ctx, a)
		return s.success(req.ID, outcome(remote.ToWire(sh), err))

	case connection.ListShelfEditors:
		if err := s.param(req, 0, &a); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		editors, err := s.Ledger.ListShelfEditors(ctx, a)
		return s.success(req.ID, outcome(editors, err))

	case connection.AddShelfEditor, connection.RemoveShelfEditor:
		if err := s.param(req, 0, &a); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		if err := s.param(req, 1, &b); err != nil {
			return s.failure(req.ID, CodeInvalidParams, err.Error())
		}
		var err error
		if req.Method == connection.AddShelfEditor.String() {
			err = s.Ledger.AddShelfEditor(ctx, a, b)
		} else {
			err = s.Ledger.RemoveShelfEditor(ctx, a, b)
		}
		return s.success(req.ID, outcome(remote.Done{}, err))
	}
	return s.failure(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
}
