package connection_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/shelfhub/shelfclient/internal/fakeshelf"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startServer(t *testing.T, opts ...fakeshelf.ServerOption) *fakeshelf.Server {
	t.Helper()
	ledger := fakeshelf.NewLedger()
	ledger.Seed("u1", models.Shelf{ID: "s1", Title: "first"})
	srv := fakeshelf.NewServer("127.0.0.1:0", ledger, opts...)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Stop()
	})
	return srv
}

func dial(t *testing.T, endpoint string) connection.Connection {
	t.Helper()
	u, err := url.ParseRequestURI(endpoint)
	require.NoError(t, err)
	conf := connection.NewConfig(u)
	conf.Timeout = 2 * time.Second
	conn, err := connection.New(conf)
	require.NoError(t, err)
	return conn
}

func TestWebSocketRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := startServer(t)
	conn := dial(t, srv.URL("ws"))
	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))

	var res connection.RPCResponse[remote.Outcome[remote.WireShelf]]
	require.NoError(t, connection.Send(conn, ctx, &res, connection.GetShelf, "s1"))
	require.NotNil(t, res.Result)
	require.NotNil(t, res.Result.Ok)
	assert.Equal(t, "first", res.Result.Ok.Title)
	assert.Equal(t, "u1", res.Result.Ok.Owner.String())

	require.NoError(t, conn.Close(ctx))
	_, err := conn.Send(ctx, connection.GetShelf.String(), "s1")
	require.ErrorIs(t, err, constants.ErrClosed)
	require.NoError(t, srv.Stop())
}

func TestWebSocketConcurrentRequests(t *testing.T) {
	srv := startServer(t)
	release := srv.Ledger.Hold(connection.GetUserShelves)
	conn := dial(t, srv.URL("ws"))
	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))
	defer conn.Close(ctx)

	held := make(chan error, 1)
	go func() {
		_, err := conn.Send(ctx, connection.GetUserShelves.String(), "u1")
		held <- err
	}()
	require.Eventually(t, func() bool {
		return srv.Ledger.Calls(connection.GetUserShelves) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, err := conn.Send(ctx, connection.GetShelf.String(), "s1")
	require.NoError(t, err)

	release()
	require.NoError(t, <-held)
}

func TestWebSocketTimeout(t *testing.T) {
	srv := startServer(t)
	release := srv.Ledger.Hold(connection.GetShelf)
	defer release()

	u, err := url.ParseRequestURI(srv.URL("ws"))
	require.NoError(t, err)
	ws := connection.NewWebSocketConnection(connection.NewConnectionParams{
		BaseURL:     connection.NewConfig(u).BaseURL,
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
	})
	ws.Timeout = 50 * time.Millisecond
	ctx := context.Background()
	require.NoError(t, ws.Connect(ctx))
	defer ws.Close(ctx)

	_, err = ws.Send(ctx, connection.GetShelf.String(), "s1")
	require.ErrorIs(t, err, constants.ErrTimeout)
}

func TestWebSocketAuthentication(t *testing.T) {
	srv := startServer(t, fakeshelf.RequireToken("secret"))
	conn := dial(t, srv.URL("ws"))
	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))
	defer conn.Close(ctx)

	_, err := conn.Send(ctx, connection.GetShelf.String(), "s1")
	var rpcErr *connection.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, fakeshelf.CodeUnauthorized, rpcErr.Code)

	require.NoError(t, conn.Authenticate(ctx, "secret"))
	_, err = conn.Send(ctx, connection.GetShelf.String(), "s1")
	require.NoError(t, err)
}

func TestHTTPAuthentication(t *testing.T) {
	srv := startServer(t, fakeshelf.RequireToken("secret"))
	conn := dial(t, srv.URL("http"))
	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))

	_, err := conn.Send(ctx, connection.GetShelf.String(), "s1")
	var rpcErr *connection.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, fakeshelf.CodeUnauthorized, rpcErr.Code)

	require.NoError(t, conn.Authenticate(ctx, "secret"))
	_, err = conn.Send(ctx, connection.GetShelf.String(), "s1")
	require.NoError(t, err)
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	u, err := url.ParseRequestURI("ftp://127.0.0.1")
	require.NoError(t, err)
	_, err = connection.New(connection.NewConfig(u))
	require.Error(t, err)
}
