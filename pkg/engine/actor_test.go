package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvmir/kvmir/pkg/command"
)

func TestRunServicesRequestsInOrder(t *testing.T) {
	s := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	requests := make(chan Request)

	go Run(ctx, s, requests)
	defer cancel()

	set := func(key, value string) command.Response {
		reply := make(chan command.Response, 1)
		requests <- Request{
			Exec: func(st *Store, now time.Time) command.Response {
				st.Set(key, value, nil)
				return command.NewSimpleString("OK")
			},
			Reply: reply,
		}
		return <-reply
	}
	get := func(key string) (string, bool) {
		reply := make(chan command.Response, 1)
		var found bool
		var value string
		requests <- Request{
			Exec: func(st *Store, now time.Time) command.Response {
				value, found = st.Get(key, now)
				return command.Response{}
			},
			Reply: reply,
		}
		<-reply
		return value, found
	}

	resp := set("k", "v")
	require.Equal(t, "OK", resp.Str)

	v, ok := get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	requests := make(chan Request)

	done := make(chan error, 1)
	go func() { done <- Run(ctx, s, requests) }()

	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
}
