package connection

import "fmt"

// RPCError is a transport-level failure reported by the shelf service
// (malformed request, unknown method, unauthorized caller).
type RPCError struct {
	Code        int    `json:"code"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r RPCError) Error() string {
	if r.Description != "" {
		return r.Description
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("rpc error %d", r.Code)
}

func (r *RPCError) Is(target error) bool {
	if target == nil {
		return r == nil
	}

	_, ok := target.(*RPCError)
	return ok
}

// RPCRequest represents an outgoing RPC request
type RPCRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method,omitempty"`
	Params []any  `json:"params,omitempty"`
}

// RPCResponse represents an incoming RPC response
type RPCResponse[T any] struct {
	// ID is the ID of the request this response corresponds to.
	ID     any       `json:"id"`
	Error  *RPCError `json:"error,omitempty"`
	Result *T        `json:"result,omitempty"`
}

type RPCFunction string

var (
	Authenticate        RPCFunction = "authenticate"
	GetUserShelves      RPCFunction = "get_user_shelves"
	GetRecentShelves    RPCFunction = "get_recent_shelves"
	ReorderProfileShelf RPCFunction = "reorder_profile_shelf"
	GetShelf            RPCFunction = "get_shelf"
	ListShelfEditors    RPCFunction = "list_shelf_editors"
	AddShelfEditor      RPCFunction = "add_shelf_editor"
	RemoveShelfEditor   RPCFunction = "remove_shelf_editor"
)

func (f RPCFunction) String() string {
	return string(f)
}
