package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the store unreachable when Ping fails.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// MaxGoroutines fails when the process runs more than limit goroutines.
func MaxGoroutines(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines, limit %d", n, limit)
		}
		return nil
	}
}

// MaxSessions fails when count reports more than limit live sessions, which
// points at a sweeper that stopped evicting idle carts.
func MaxSessions(count func() int, limit int) CheckFunc {
	return func(context.Context) error {
		if n := count(); n > limit {
			return errors.Errorf("%d sessions, limit %d", n, limit)
		}
		return nil
	}
}
