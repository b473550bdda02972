// Package wspb provides helpers for protobuf messages.
package wspb

import (
	"context"

	"github.com/golang/protobuf/proto"
	"golang.org/x/xerrors"

	"github.com/merrellb/websockets"
	"github.com/merrellb/websockets/internal/errd"
)

// Read reads a protobuf message from c into v.
func Read(ctx context.Context, c *websockets.Conn, v proto.Message) (err error) {
	defer errd.Wrap(&err, "failed to read protobuf")

	typ, p, err := c.Read(ctx)
	if err != nil {
		return err
	}

	if typ != websockets.MessageBinary {
		return xerrors.Errorf("unexpected message type (expected %v): %v", websockets.MessageBinary, typ)
	}

	err = proto.Unmarshal(p, v)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal protobuf: %w", err)
	}
	return nil
}

// Write writes the protobuf message v to c.
func Write(ctx context.Context, c *websockets.Conn, v proto.Message) (err error) {
	defer errd.Wrap(&err, "failed to write protobuf")

	p, err := proto.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal protobuf: %w", err)
	}
	return c.Write(ctx, websockets.MessageBinary, p)
}
