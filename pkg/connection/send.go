package connection

import (
	"context"
	"fmt"
)

// Send calls fn on c and decodes the result into res.Result, leaving it nil
// when the service answered without one. Passing a nil res discards the result.
func Send[Result any](c Connection, ctx context.Context, res *RPCResponse[Result], fn RPCFunction, params ...any) error {
	raw, err := c.Send(ctx, fn.String(), params...)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	res.ID = raw.ID
	res.Error = raw.Error
	res.Result = nil
	if raw.Result == nil || len(*raw.Result) == 0 {
		return nil
	}

	var r Result
	if err := c.GetUnmarshaler().Unmarshal(*raw.Result, &r); err != nil {
		return fmt.Errorf("%s: decoding result: %w", fn, err)
	}
	res.Result = &r
	return nil
}
