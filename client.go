package shelfclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shelfhub/shelfclient/pkg/cache"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/editors"
	"github.com/shelfhub/shelfclient/pkg/identity"
	"github.com/shelfhub/shelfclient/pkg/loader"
	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/shelfhub/shelfclient/pkg/reorder"
	"github.com/shelfhub/shelfclient/pkg/store"
)

// DefaultCache is the process-wide cache used by clients built without WithCache.
var DefaultCache = cache.New()

// editorFanout bounds concurrent editor fetches in LoadProfile.
const editorFanout = 4

type options struct {
	cache  *cache.Cache
	log    logger.Logger
	caller identity.Supplier
}

type Option func(*options)

func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithCaller sets who permissions are derived for.
func WithCaller(s identity.Supplier) Option {
	return func(o *options) {
		o.caller = s
	}
}

// Client wires the cache, store, loader, editor registry and reorder
// coordinator around one remote service.
type Client struct {
	conn    connection.Connection
	logData *logger.LogData

	remote  remote.Service
	cache   *cache.Cache
	store   *store.Store
	caller  identity.Supplier
	loader  *loader.Loader
	editors *editors.Registry
	reorder *reorder.Coordinator
	log     logger.Logger
}

// New builds a client over svc. Nothing is fetched until asked.
func New(svc remote.Service, opts ...Option) *Client {
	o := options{
		cache:  DefaultCache,
		log:    logger.Nop(),
		caller: identity.NewStatic(""),
	}
	for _, opt := range opts {
		opt(&o)
	}

	st := store.New(store.WithLogger(o.log))
	reg := editors.New(svc, o.cache, st, o.caller, editors.WithLogger(o.log))
	ld := loader.New(svc, o.cache, st, o.caller, loader.WithEditors(reg), loader.WithLogger(o.log))
	return &Client{
		remote:  svc,
		cache:   o.cache,
		store:   st,
		caller:  o.caller,
		loader:  ld,
		editors: reg,
		reorder: reorder.New(svc, o.cache, st, ld, reorder.WithLogger(o.log)),
		log:     o.log,
	}
}

// Connect opens a connection to conf.Endpoint and builds a client over it.
// The caller is conf.Principal, else the subject of conf.Token.
func Connect(ctx context.Context, conf *Config, opts ...Option) (*Client, error) {
	u, err := url.ParseRequestURI(conf.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", conf.Endpoint, err)
	}

	logData, err := logger.New().Level(conf.LogLevel).FromPath(conf.LogPath).Make()
	if err != nil {
		return nil, err
	}
	log := logData.Sugar()

	caller, err := callerFor(conf)
	if err != nil {
		_ = logData.Close()
		return nil, err
	}

	connConf := connection.NewConfig(u)
	connConf.Logger = log
	if conf.Timeout > 0 {
		connConf.Timeout = conf.Timeout
	}
	conn, err := connection.New(connConf)
	if err != nil {
		_ = logData.Close()
		return nil, err
	}
	if conf.Token != "" {
		if err := conn.Authenticate(ctx, conf.Token); err != nil {
			_ = logData.Close()
			return nil, err
		}
	}
	if err := conn.Connect(ctx); err != nil {
		_ = logData.Close()
		return nil, fmt.Errorf("connect to %s: %w", conf.Endpoint, err)
	}
	log.Info("connected", "endpoint", conf.Endpoint, "caller", caller.Current())

	base := []Option{WithLogger(log), WithCaller(caller)}
	if conf.CacheTTL > 0 {
		base = append(base, WithCache(cache.New(cache.WithTTL(conf.CacheTTL))))
	}
	c := New(remote.NewRPCService(conn), append(base, opts...)...)
	c.conn = conn
	c.logData = logData
	return c, nil
}

func callerFor(conf *Config) (identity.Supplier, error) {
	if p := strings.TrimSpace(conf.Principal); p != "" {
		return identity.NewStatic(p), nil
	}
	if conf.Token == "" {
		return identity.NewStatic(""), nil
	}
	return identity.FromToken(conf.Token)
}

// Caller is the identity permissions are derived for.
func (c *Client) Caller() string {
	return c.caller.Current()
}

func (c *Client) LoadCollection(ctx context.Context, owner string) error {
	return c.loader.LoadCollection(ctx, owner)
}

func (c *Client) LoadRecent(ctx context.Context, q remote.RecentQuery) (loader.Page, error) {
	return c.loader.LoadRecentPublicCollection(ctx, q)
}

// LoadShelf reads one shelf, from the cache when possible.
func (c *Client) LoadShelf(ctx context.Context, shelfID string) (models.Shelf, error) {
	return c.loader.LoadShelf(ctx, shelfID)
}

func (c *Client) Reorder(ctx context.Context, req reorder.Request) (reorder.Outcome, error) {
	return c.reorder.Reorder(ctx, req)
}

func (c *Client) ListEditors(ctx context.Context, shelfID string) ([]string, error) {
	return c.editors.ListEditors(ctx, shelfID)
}

func (c *Client) AddEditor(ctx context.Context, shelfID, editor string) error {
	return c.editors.AddEditor(ctx, shelfID, editor)
}

func (c *Client) RemoveEditor(ctx context.Context, shelfID, editor string) error {
	return c.editors.RemoveEditor(ctx, shelfID, editor)
}

// LoadProfile loads owner's collection and then the editor set of every
// shelf in it, several at a time.
func (c *Client) LoadProfile(ctx context.Context, owner string) error {
	if err := c.loader.LoadCollection(ctx, owner); err != nil {
		return err
	}
	ids := c.store.Snapshot().Order(store.ProfileContext(owner))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(editorFanout)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := c.editors.ListEditors(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// ClearProfile drops owner's collection from the store and the cache.
func (c *Client) ClearProfile(owner string) error {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return constants.ErrEmptyIdentity
	}
	c.store.Clear(store.ProfileContext(owner))
	c.cache.InvalidateForPrincipal(owner)
	return nil
}

// SetCaller switches the signed-in identity and recomputes every
// permission record. It needs a client built with an *identity.Static caller.
func (c *Client) SetCaller(id string) error {
	s, ok := c.caller.(*identity.Static)
	if !ok {
		return errors.New("caller is not switchable")
	}
	s.Set(id)
	return c.loader.Rederive()
}

func (c *Client) Snapshot() store.Snapshot {
	return c.store.Snapshot()
}

func (c *Client) Changes() <-chan store.Change {
	return c.store.Changes()
}

// Editors returns the last fetched editor set of shelfID.
func (c *Client) Editors(shelfID string) ([]string, bool) {
	return c.editors.Editors(shelfID)
}

// Close closes the connection opened by Connect. Clients from New own no
// connection and Close is a no-op for them.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.conn != nil {
		errs = append(errs, c.conn.Close(ctx))
	}
	if c.logData != nil {
		errs = append(errs, c.logData.Close())
	}
	return errors.Join(errs...)
}
