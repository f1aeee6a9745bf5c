// Package server implements the TCP accept loop that serves
// internal/protocol requests against a kv.Engine. Connections are
// handled one at a time (spec.md §9): the engine has no concurrency
// discipline beyond single-writer, so nothing here hands it two
// in-flight requests concurrently.
package server

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/nilotpal/bitforge/internal/protocol"
	"github.com/nilotpal/bitforge/pkg/kv"
	"github.com/nilotpal/bitforge/pkg/kverrors"
)

// Serve accepts connections from listener until Accept fails. It then
// returns nil if ctx is done (the caller closed the listener to stop it)
// and Accept's error otherwise.
func Serve(ctx context.Context, listener net.Listener, engine kv.Engine, log *zap.SugaredLogger) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		handleConn(conn, engine, log)
	}
}

func handleConn(conn net.Conn, engine kv.Engine, log *zap.SugaredLogger) {
	defer conn.Close()

	cmd, err := protocol.ReadCommand(conn)
	if err != nil {
		log.Warnw("failed to read command", "error", err)
		return
	}

	resp := Dispatch(engine, cmd)
	if err := protocol.WriteResponse(conn, resp); err != nil {
		log.Warnw("failed to write response", "error", err)
	}
}

// Dispatch executes cmd against engine and builds the wire response,
// translating engine errors into the spec's exact "Key not found" text
// where the taxonomy calls for it.
func Dispatch(engine kv.Engine, cmd protocol.Command) protocol.Response {
	switch cmd.Action {
	case protocol.ActionSet:
		if err := engine.Set(cmd.Key, cmd.Value); err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse(nil)

	case protocol.ActionGet:
		value, found, err := engine.Get(cmd.Key)
		if err != nil {
			return protocol.ErrResponse(err.Error())
		}
		if !found {
			return protocol.ErrResponse("Key not found")
		}
		return protocol.OkResponse(&value)

	case protocol.ActionRM:
		if err := engine.Remove(cmd.Key); err != nil {
			if kverrors.IsKeyNotFound(err) {
				return protocol.ErrResponse("Key not found")
			}
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse(nil)

	default:
		return protocol.ErrResponse(fmt.Sprintf("unknown action %q", cmd.Action))
	}
}
