// Package wsjson provides helpers for JSON messages.
package wsjson

import (
	"context"
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/merrellb/websockets"
	"github.com/merrellb/websockets/internal/errd"
)

// Read reads a JSON message from c into v.
func Read(ctx context.Context, c *websockets.Conn, v interface{}) (err error) {
	defer errd.Wrap(&err, "failed to read json")

	typ, p, err := c.Read(ctx)
	if err != nil {
		return err
	}

	if typ != websockets.MessageText {
		return xerrors.Errorf("unexpected message type (expected %v): %v", websockets.MessageText, typ)
	}

	err = json.Unmarshal(p, v)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal json: %w", err)
	}
	return nil
}

// Write writes the JSON message v to c.
func Write(ctx context.Context, c *websockets.Conn, v interface{}) (err error) {
	defer errd.Wrap(&err, "failed to write json")

	p, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal json: %w", err)
	}
	return c.Write(ctx, websockets.MessageText, p)
}
