package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/shelfhub/shelfclient/pkg/constants"
)

// DefaultDialer is gorilla's default dialer with compression on and the cbor subprotocol.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

type WebSocketConnection struct {
	BaseConnection

	// Timeout bounds the wait for a response after the request is written.
	// Zero leaves it to the caller's context.
	Timeout time.Duration

	// connLock guards Conn for writers; gorilla allows one concurrent writer.
	connLock sync.Mutex
	Conn     *gorilla.Conn

	closeOnce  sync.Once
	closeCh    chan struct{}
	readDone   chan struct{}
	closeError error
}

func NewWebSocketConnection(p NewConnectionParams) *WebSocketConnection {
	return &WebSocketConnection{
		BaseConnection: newBaseConnection(p),
		Timeout:        constants.DefaultTimeout,
		closeCh:        make(chan struct{}),
		readDone:       make(chan struct{}),
	}
}

func (ws *WebSocketConnection) Connect(ctx context.Context) error {
	if err := ws.preConnectionChecks(); err != nil {
		return err
	}

	header := http.Header{}
	if token := ws.getToken(); token != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	conn, res, err := DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/rpc", ws.baseURL), header)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	ws.connLock.Lock()
	ws.Conn = conn
	ws.connLock.Unlock()

	go ws.readLoop(conn)

	return nil
}

// Authenticate stores the token for future dials and, when already connected,
// forwards it to the live session.
func (ws *WebSocketConnection) Authenticate(ctx context.Context, token string) error {
	ws.setToken(token)

	ws.connLock.Lock()
	connected := ws.Conn != nil
	ws.connLock.Unlock()
	if !connected {
		return nil
	}
	_, err := ws.Send(ctx, Authenticate.String(), token)
	return err
}

// Close sends a normal-closure frame, closes the socket and waits for the
// read loop to exit or ctx to end. Calling it again is a no-op.
func (ws *WebSocketConnection) Close(ctx context.Context) error {
	ws.signalClosed(nil)

	ws.connLock.Lock()
	conn := ws.Conn
	ws.Conn = nil
	ws.connLock.Unlock()

	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	msg := gorilla.FormatCloseMessage(constants.CloseMessageCode, "")
	if err := conn.WriteControl(gorilla.CloseMessage, msg, deadline); err != nil {
		ws.logger.Warn("failed to write close message", "error", err)
	}
	err := conn.Close()

	select {
	case <-ws.readDone:
	case <-ctx.Done():
	}
	return err
}

func (ws *WebSocketConnection) signalClosed(cause error) {
	ws.closeOnce.Do(func() {
		ws.closeError = cause
		close(ws.closeCh)
	})
}

func (ws *WebSocketConnection) Send(ctx context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error) {
	if ws.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ws.Timeout)
		defer cancel()
	}

	select {
	case <-ws.closeCh:
		return nil, ws.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := newRequestID()
	request := &RPCRequest{
		ID:     id,
		Method: method,
		Params: params,
	}

	responseChan, err := ws.createResponseChannel(id)
	if err != nil {
		return nil, err
	}
	defer ws.removeResponseChannel(id)

	if err := ws.write(request); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", constants.ErrTimeout, method)
		}
		return nil, ctx.Err()
	case <-ws.closeCh:
		return nil, ws.closedErr()
	case res := <-responseChan:
		if res.Error != nil {
			return nil, res.Error
		}
		return &res, nil
	}
}

func (ws *WebSocketConnection) closedErr() error {
	if ws.closeError != nil {
		return fmt.Errorf("%w: %v", constants.ErrClosed, ws.closeError)
	}
	return constants.ErrClosed
}

func (ws *WebSocketConnection) write(v any) error {
	data, err := ws.marshaler.Marshal(v)
	if err != nil {
		return err
	}

	ws.connLock.Lock()
	defer ws.connLock.Unlock()
	if ws.Conn == nil {
		return constants.ErrClosed
	}
	return ws.Conn.WriteMessage(gorilla.BinaryMessage, data)
}

func (ws *WebSocketConnection) readLoop(conn *gorilla.Conn) {
	defer close(ws.readDone)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ws.closeCh:
			default:
				ws.logger.Error("websocket read failed", "error", err)
				ws.signalClosed(err)
			}
			return
		}
		ws.handleResponse(data)
	}
}

func (ws *WebSocketConnection) handleResponse(data []byte) {
	var res RPCResponse[cbor.RawMessage]
	if err := ws.unmarshaler.Unmarshal(data, &res); err != nil {
		ws.logger.Error("undecodable response", "error", err)
		return
	}

	if res.ID == nil || fmt.Sprint(res.ID) == "" {
		ws.logger.Error("response without id", "error", fmt.Sprint(res.Error))
		return
	}

	ch, ok := ws.getResponseChannel(fmt.Sprint(res.ID))
	if !ok {
		ws.logger.Warn("no pending request for response", "id", fmt.Sprint(res.ID))
		return
	}
	ch <- res
}
