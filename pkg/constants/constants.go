package constants

import "time"

const (
	// CloseMessageCode is the websocket normal-closure code sent on Close.
	CloseMessageCode = 1000
	// DefaultTimeout bounds a single RPC round trip.
	DefaultTimeout = 30 * time.Second
	// DefaultRecentLimit is the page size used when a recent query omits one.
	DefaultRecentLimit = 20
)

var (
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
)
