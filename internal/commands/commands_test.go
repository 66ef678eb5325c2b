package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/shelfhub/shelfclient"
	"github.com/shelfhub/shelfclient/internal/fakeshelf"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T) *fakeshelf.Server {
	t.Helper()
	ledger := fakeshelf.NewLedger()
	ledger.Seed("u1",
		models.Shelf{ID: "s1", Title: "Reading"},
		models.Shelf{ID: "s2", Title: "Listening"},
		models.Shelf{ID: "s3", Title: "Watching"},
	)
	ledger.SetEditors("s2", "u2")
	srv := fakeshelf.NewServer("127.0.0.1:0", ledger)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Stop()
		shelfclient.DefaultCache.Clear()
	})
	return srv
}

func execute(t *testing.T, srv *fakeshelf.Server, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--endpoint", srv.URL("http"), "--principal", "u1", "--log-level", "disabled"))
	err := cmd.Execute()
	return out.String(), err
}

func TestShelves(t *testing.T) {
	srv := serve(t)
	out, err := execute(t, srv, "shelves")
	require.NoError(t, err)
	assert.Contains(t, out, "Reading")
	assert.Contains(t, out, "owner")
	assert.Less(t, strings.Index(out, "s1"), strings.Index(out, "s3"))
}

func TestShow(t *testing.T) {
	srv := serve(t)
	out, err := execute(t, srv, "show", "s2")
	require.NoError(t, err)
	assert.Contains(t, out, "Listening")
	assert.NotContains(t, out, "Reading")

	_, err = execute(t, srv, "show", "nope")
	assert.Error(t, err)
}

func TestOrderAndReorder(t *testing.T) {
	srv := serve(t)

	out, err := execute(t, srv, "order")
	require.NoError(t, err)
	assert.Equal(t, "s1 s2 s3\n", out)

	out, err = execute(t, srv, "reorder", "s3", "--ref", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s3 s1 s2\n", out)
	assert.Equal(t, []string{"s3", "s1", "s2"}, srv.Ledger.Order("u1"))

	out, err = execute(t, srv, "reorder", "--order", "s1,s2,s3")
	require.NoError(t, err)
	assert.Equal(t, "s1 s2 s3\n", out)
}

func TestReorderRejected(t *testing.T) {
	srv := serve(t)
	srv.Ledger.Fail(connection.ReorderProfileShelf, "read only")

	_, err := execute(t, srv, "reorder", "s1", "--after")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read only")
	assert.Equal(t, []string{"s1", "s2", "s3"}, srv.Ledger.Order("u1"))
}

func TestRecent(t *testing.T) {
	srv := serve(t)
	out, err := execute(t, srv, "recent", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Watching")
	assert.NotContains(t, out, "Reading")

	out, err = execute(t, srv, "recent", "--limit", "2", "--pages", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Reading")
}

func TestEditors(t *testing.T) {
	srv := serve(t)

	out, err := execute(t, srv, "editors", "list", "s2")
	require.NoError(t, err)
	assert.Contains(t, out, "u2")

	out, err = execute(t, srv, "editors", "add", "s2", "u3")
	require.NoError(t, err)
	assert.Contains(t, out, "u3")

	out, err = execute(t, srv, "editors", "rm", "s2", "u2")
	require.NoError(t, err)
	assert.NotContains(t, out, "u2")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SHELF_ENDPOINT", "https://shelves.example.com")
	t.Setenv("SHELF_LOG_LEVEL", "debug")
	t.Setenv("SHELF_CONFIG_PATH", t.TempDir())

	conf, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "https://shelves.example.com", conf.Endpoint)
	assert.Equal(t, "debug", conf.LogLevel)
	assert.Equal(t, constants.DefaultTimeout, conf.Timeout)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".shelfctl.yaml"), []byte("endpoint: wss://file.example.com\nprincipal: u9\ntimeout: 5s\n"), 0o600))
	t.Setenv("SHELF_CONFIG_PATH", dir)

	conf, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "wss://file.example.com", conf.Endpoint)
	assert.Equal(t, "u9", conf.Principal)
	assert.Equal(t, 5*time.Second, conf.Timeout)
}
