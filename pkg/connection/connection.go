package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/oklog/ulid/v2"
	"github.com/shelfhub/shelfclient/internal/codec"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/logger"
)

type Connection interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	// Send returns the raw response; use the generic Send function to decode Result.
	// A response carrying an RPCError is returned as that error.
	Send(ctx context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error)
	// Authenticate attaches a bearer token to every subsequent request.
	Authenticate(ctx context.Context, token string) error
	GetUnmarshaler() codec.Unmarshaler
}

type NewConnectionParams struct {
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	BaseURL     string
	Logger      logger.Logger
}

type BaseConnection struct {
	baseURL     string
	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
	logger      logger.Logger

	tokenLock sync.RWMutex
	token     string

	responseChannels     map[string]chan RPCResponse[cbor.RawMessage]
	responseChannelsLock sync.RWMutex
}

func newBaseConnection(p NewConnectionParams) BaseConnection {
	l := p.Logger
	if l == nil {
		l = logger.Nop()
	}
	return BaseConnection{
		baseURL:          p.BaseURL,
		marshaler:        p.Marshaler,
		unmarshaler:      p.Unmarshaler,
		logger:           l,
		responseChannels: make(map[string]chan RPCResponse[cbor.RawMessage]),
	}
}

func (bc *BaseConnection) GetUnmarshaler() codec.Unmarshaler {
	return bc.unmarshaler
}

func (bc *BaseConnection) setToken(token string) {
	bc.tokenLock.Lock()
	defer bc.tokenLock.Unlock()
	bc.token = token
}

func (bc *BaseConnection) getToken() string {
	bc.tokenLock.RLock()
	defer bc.tokenLock.RUnlock()
	return bc.token
}

func (bc *BaseConnection) createResponseChannel(id string) (chan RPCResponse[cbor.RawMessage], error) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()

	if _, ok := bc.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	// Buffered so the read loop never blocks on a caller that gave up.
	ch := make(chan RPCResponse[cbor.RawMessage], 1)
	bc.responseChannels[id] = ch

	return ch, nil
}

func (bc *BaseConnection) removeResponseChannel(id string) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()
	delete(bc.responseChannels, id)
}

func (bc *BaseConnection) getResponseChannel(id string) (chan RPCResponse[cbor.RawMessage], bool) {
	bc.responseChannelsLock.RLock()
	defer bc.responseChannelsLock.RUnlock()
	ch, ok := bc.responseChannels[id]
	return ch, ok
}

func (bc *BaseConnection) preConnectionChecks() error {
	if bc.baseURL == "" {
		return constants.ErrNoBaseURL
	}

	if bc.marshaler == nil {
		return constants.ErrNoMarshaler
	}

	if bc.unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return nil
}

func newRequestID() string {
	return ulid.Make().String()
}
