package engine

import (
	"context"
	"time"

	"github.com/kvmir/kvmir/pkg/command"
)

// Request is one unit of work routed to the goroutine running Run. Exec
// receives exclusive access to the owning Store for the duration of the
// call; Reply receives exactly one Response once Exec returns. The
// executor package supplies Exec so that engine itself never needs to
// import it (pkg/executor already imports pkg/engine).
type Request struct {
	Exec  func(*Store, time.Time) command.Response
	Reply chan command.Response
}

// Run is the engine-actor loop described in SPEC_FULL.md §4: it is the
// only goroutine that ever touches store, serializing every request off
// requests one at a time, the Go rendering of spec §5's single-threaded
// cooperative-borrow discipline. It returns when ctx is canceled or
// requests is closed.
func Run(ctx context.Context, store *Store, requests <-chan Request) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			req.Reply <- req.Exec(store, time.Now())
		}
	}
}
