package shelfclient

import (
	"time"

	"github.com/shelfhub/shelfclient/pkg/constants"
)

// Config holds what Connect needs to reach the shelf service.
type Config struct {
	// Endpoint is the service URL, e.g. "wss://shelves.example.com" or "http://localhost:8080".
	Endpoint string
	Timeout  time.Duration
	// CacheTTL expires cached collections. Zero keeps them until invalidated.
	CacheTTL time.Duration
	// Token is the session token sent as a bearer credential.
	Token string
	// Principal overrides the caller identity read from Token.
	Principal string
	LogLevel  string
	// LogPath appends logs to a file instead of stderr.
	LogPath string
}

func NewConfig(endpoint string) *Config {
	return &Config{
		Endpoint: endpoint,
		Timeout:  constants.DefaultTimeout,
		LogLevel: "info",
	}
}
