// Package executor implements the pure command dispatch described in
// spec §4.6: a function from (command, store, now) to response, with no
// side effects beyond the one engine mutation/read the command calls for.
package executor

import (
	"strconv"
	"time"

	"github.com/kvmir/kvmir/pkg/command"
	"github.com/kvmir/kvmir/pkg/engine"
)

// notFoundSentinel is the string the spec requires Get to return for an
// absent key (spec §4.5 "Failure semantics").
const notFoundSentinel = "not found"

// Execute runs cmd against store as of now and returns the response. It
// holds no lock of its own; the caller (the engine actor in
// internal/server) is responsible for ensuring store is not touched by
// anyone else while Execute runs.
func Execute(cmd *command.Command, store *engine.Store, now time.Time) command.Response {
	switch cmd.Kind {
	case command.Get:
		v, ok := store.Get(cmd.Key, now)
		if !ok {
			v = notFoundSentinel
		}
		return command.NewSimpleString(v)

	case command.Set:
		var ttl *time.Time
		if cmd.TTL > 0 {
			exp := now.Add(cmd.TTL)
			ttl = &exp
		}
		store.Set(cmd.Key, cmd.Value, ttl)
		return command.NewSimpleString("OK")

	case command.Del:
		store.Del(cmd.Key)
		return command.NewSimpleString("OK")

	case command.Exists:
		if store.Exists(cmd.Key, now) {
			return command.NewInteger(1)
		}
		return command.NewInteger(0)

	case command.Incr:
		return executeIncr(cmd, store, now)

	case command.Ping:
		return command.NewSimpleString("PONG")

	case command.Config:
		return command.NewSimpleString("OK")

	case command.CommandDocs:
		return command.NewArray(nil)

	case command.FlushDb:
		store.Flush()
		return command.NewSimpleString("OK")

	default:
		return command.NewSimpleString("ERR unknown command")
	}
}

// executeIncr implements spec §4.5/§4.6's Incr: parse the current value as
// an unsigned integer (defaulting to 0 if absent), store the successor
// with no TTL, and reply "OK". A non-numeric existing value is an error
// response rather than the panic the source exhibits (spec §9 Design
// Note).
func executeIncr(cmd *command.Command, store *engine.Store, now time.Time) command.Response {
	current := uint64(0)
	if v, ok := store.Get(cmd.Key, now); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return command.NewSimpleString("ERR value is not an integer")
		}
		current = n
	}

	next := current + 1
	store.Set(cmd.Key, strconv.FormatUint(next, 10), nil)
	return command.NewSimpleString("OK")
}
