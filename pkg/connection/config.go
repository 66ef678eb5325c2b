package connection

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shelfhub/shelfclient/internal/codec"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/shelfhub/shelfclient/pkg/models"
)

// Config selects and configures a connection engine.
type Config struct {
	URL         url.URL
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	Logger      logger.Logger
	Timeout     time.Duration
}

// NewConfig creates a Config for the shelf service endpoint at u, such as
// "ws://localhost:8080" or "https://shelves.example.com".
func NewConfig(u *url.URL) *Config {
	return &Config{
		URL:         *u,
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
		BaseURL:     fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, trimSlash(u.Path)),
		Logger:      logger.Nop(),
		Timeout:     constants.DefaultTimeout,
	}
}

// New builds the engine matching the URL scheme. The connection is not yet connected.
func New(conf *Config) (Connection, error) {
	p := NewConnectionParams{
		Marshaler:   conf.Marshaler,
		Unmarshaler: conf.Unmarshaler,
		BaseURL:     conf.BaseURL,
		Logger:      conf.Logger,
	}
	switch conf.URL.Scheme {
	case constants.HTTPScheme, constants.HTTPSecureScheme:
		con := NewHTTPConnection(p)
		if conf.Timeout > 0 {
			con.SetTimeout(conf.Timeout)
		}
		return con, nil
	case constants.WebsocketScheme, constants.WebsocketSecureScheme:
		con := NewWebSocketConnection(p)
		con.Timeout = conf.Timeout
		return con, nil
	}
	return nil, fmt.Errorf("invalid connection url scheme %q", conf.URL.Scheme)
}

func trimSlash(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
