// Package commands implements the shelfctl command tree.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfhub/shelfclient"
	"github.com/shelfhub/shelfclient/pkg/cache"
)

// root carries what every subcommand needs: the config source and the cache
// shared by all clients the process opens.
type root struct {
	v     *viper.Viper
	cache *cache.Cache
}

func New() *cobra.Command {
	r := &root{v: viper.New(), cache: shelfclient.DefaultCache}

	cmd := &cobra.Command{
		Use:           "shelfctl",
		Short:         "Browse and reorder shelves on a shelf service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("endpoint", "", "Shelf service URL (ws, wss, http or https).")
	flags.String("token", "", "Session token; its subject is the caller.")
	flags.String("principal", "", "Caller identity, overriding the token subject.")
	flags.Duration("timeout", 0, "Per-request timeout.")
	flags.String("log-level", "", "Log level: debug, info, warn, error.")
	flags.String("log-path", "", "Append logs to this file instead of stderr.")
	for _, name := range []string{"endpoint", "token", "principal", "timeout", "log-level", "log-path"} {
		_ = r.v.BindPFlag(name, flags.Lookup(name))
	}

	addCommands(cmd, r)
	return cmd
}

func addCommands(topLevel *cobra.Command, r *root) {
	addShelves(topLevel, r)
	addShow(topLevel, r)
	addRecent(topLevel, r)
	addOrder(topLevel, r)
	addReorder(topLevel, r)
	addEditors(topLevel, r)
}

// connect opens a client using the merged config. The caller must Close it.
func (r *root) connect(ctx context.Context) (*shelfclient.Client, error) {
	conf, err := LoadConfig(r.v)
	if err != nil {
		return nil, err
	}
	return shelfclient.Connect(ctx, conf, shelfclient.WithCache(r.cache))
}

// run connects, calls fn and closes the client whatever fn returns.
func (r *root) run(cmd *cobra.Command, fn func(ctx context.Context, c *shelfclient.Client) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(ctx); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, c)
}
