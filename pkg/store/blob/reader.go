package blob

import (
	"context"
	"io"
)

// contextReader aborts a copy once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

// ContextReader wraps r so that every Read first checks ctx. Stores use it to
// make long copies from a client body respond to cancellation.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
