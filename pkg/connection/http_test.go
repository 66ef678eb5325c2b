package connection

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/stretchr/testify/suite"
)

type RoundTripFunc func(req *http.Request) *http.Response

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

// NewTestClient returns *http.Client with Transport replaced to avoid making real calls
func NewTestClient(fn RoundTripFunc) *http.Client {
	return &http.Client{
		Transport: fn,
	}
}

type HTTPTestSuite struct {
	suite.Suite
}

func TestHttpTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}

func (s *HTTPTestSuite) engine(fn RoundTripFunc) *HTTPConnection {
	p := NewConnectionParams{
		BaseURL:     "http://shelves.test",
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
	}
	return NewHTTPConnection(p).SetHTTPClient(NewTestClient(fn))
}

func (s *HTTPTestSuite) respond(status int, v any) *http.Response {
	body, err := models.CborMarshaler{}.Marshal(v)
	s.Require().NoError(err)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}

func (s *HTTPTestSuite) TestMakeRequestDecodesErrorBody() {
	engine := s.engine(func(req *http.Request) *http.Response {
		s.Equal("http://shelves.test/rpc", req.URL.String())
		return s.respond(http.StatusBadRequest, RPCResponse[any]{
			ID:    "1",
			Error: &RPCError{Code: 111, Message: "There was a problem"},
		})
	})

	req, _ := http.NewRequestWithContext(context.TODO(), http.MethodGet, "http://shelves.test/rpc", http.NoBody)
	_, err := engine.MakeRequest(req)

	var rpcErr *RPCError
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(111, rpcErr.Code)
	s.Equal("There was a problem", rpcErr.Error())
}

func (s *HTTPTestSuite) TestMakeRequestWithoutErrorBody() {
	engine := s.engine(func(req *http.Request) *http.Response {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
		}
	})

	req, _ := http.NewRequestWithContext(context.TODO(), http.MethodGet, "http://shelves.test/health", http.NoBody)
	_, err := engine.MakeRequest(req)

	var rpcErr *RPCError
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(http.StatusBadGateway, rpcErr.Code)
}

func (s *HTTPTestSuite) TestSendCarriesTokenAndDecodesResult() {
	engine := s.engine(func(req *http.Request) *http.Response {
		s.Equal(http.MethodPost, req.Method)
		s.Equal("Bearer secret", req.Header.Get("Authorization"))
		s.Equal("application/cbor", req.Header.Get("Content-Type"))

		body, err := io.ReadAll(req.Body)
		s.Require().NoError(err)
		var rpcReq RPCRequest
		s.Require().NoError(models.CborUnmarshaler{}.Unmarshal(body, &rpcReq))
		s.Equal(GetShelf.String(), rpcReq.Method)
		s.Equal([]any{"s1"}, rpcReq.Params)

		result := any("pong")
		return s.respond(http.StatusOK, RPCResponse[any]{ID: rpcReq.ID, Result: &result})
	})
	s.Require().NoError(engine.Authenticate(context.TODO(), "secret"))

	var res RPCResponse[string]
	s.Require().NoError(Send(engine, context.TODO(), &res, GetShelf, "s1"))
	s.Require().NotNil(res.Result)
	s.Equal("pong", *res.Result)
}

func (s *HTTPTestSuite) TestSendReturnsRPCError() {
	engine := s.engine(func(req *http.Request) *http.Response {
		return s.respond(http.StatusOK, RPCResponse[cbor.RawMessage]{ID: "x", Error: &RPCError{Code: -32601, Message: "method not found"}})
	})

	_, err := engine.Send(context.TODO(), "nope")
	var rpcErr *RPCError
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(-32601, rpcErr.Code)
}

func (s *HTTPTestSuite) TestSendWithoutBaseURL() {
	engine := NewHTTPConnection(NewConnectionParams{
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
	})
	_, err := engine.Send(context.TODO(), GetShelf.String(), "s1")
	s.Require().Error(err)
}
