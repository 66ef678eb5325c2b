package connection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/shelfhub/shelfclient/pkg/constants"
)

type HTTPConnection struct {
	BaseConnection

	httpClient *http.Client
}

func NewHTTPConnection(p NewConnectionParams) *HTTPConnection {
	con := HTTPConnection{
		BaseConnection: newBaseConnection(p),
	}

	if con.httpClient == nil {
		con.httpClient = &http.Client{
			Timeout: constants.DefaultTimeout,
		}
	}

	return &con
}

// Connect verifies the endpoint answers its health check.
func (h *HTTPConnection) Connect(ctx context.Context) error {
	if err := h.preConnectionChecks(); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	_, err = h.MakeRequest(httpReq)
	return err
}

func (h *HTTPConnection) Close(ctx context.Context) error {
	h.httpClient.CloseIdleConnections()
	return nil
}

func (h *HTTPConnection) SetTimeout(timeout time.Duration) *HTTPConnection {
	h.httpClient.Timeout = timeout
	return h
}

func (h *HTTPConnection) SetHTTPClient(client *http.Client) *HTTPConnection {
	h.httpClient = client
	return h
}

func (h *HTTPConnection) Authenticate(ctx context.Context, token string) error {
	h.setToken(token)
	return nil
}

func (h *HTTPConnection) Send(ctx context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error) {
	if err := h.preConnectionChecks(); err != nil {
		return nil, err
	}

	rpcReq := &RPCRequest{
		ID:     newRequestID(),
		Method: method,
		Params: params,
	}

	reqBody, err := h.marshaler.Marshal(rpcReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/rpc", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set("Content-Type", "application/cbor")

	if token := h.getToken(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	respData, err := h.MakeRequest(req)
	if err != nil {
		return nil, err
	}

	var res RPCResponse[cbor.RawMessage]
	if err := h.unmarshaler.Unmarshal(respData, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrInvalidResponse, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}

	return &res, nil
}

// MakeRequest returns the body of a 2xx response. Anything else is decoded
// into an RPCError when possible.
func (h *HTTPConnection) MakeRequest(req *http.Request) ([]byte, error) {
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			h.logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBytes, nil
	}

	var errorResponse RPCResponse[cbor.RawMessage]
	if err := h.unmarshaler.Unmarshal(respBytes, &errorResponse); err == nil && errorResponse.Error != nil {
		return nil, errorResponse.Error
	}
	return nil, &RPCError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}
