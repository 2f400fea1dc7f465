package restart

import (
	"context"
	"errors"
	"time"
)

// ErrSessionEnded is reported when a session returns without an error while
// ctx is still live.
var ErrSessionEnded = errors.New("session ended")

// Policy reruns a long-lived session, such as a feed listener or a pub/sub
// subscription, after it fails. The wait doubles from Base up to Max and goes
// back to Base once a session has made progress.
type Policy struct {
	Base time.Duration
	Max  time.Duration

	// Sleep defaults to SleepCtx.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRestart is told about every failure before the wait.
	OnRestart func(wait time.Duration, err error)
}

// SleepCtx waits for d or until ctx is done.
func SleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run calls session until ctx is done and returns ctx.Err(). The session
// reports whether it made progress before it stopped.
func (p Policy) Run(ctx context.Context, session func(ctx context.Context) (progressed bool, err error)) error {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepCtx
	}

	wait := base
	for {
		progressed, err := session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if progressed {
			wait = base
		}
		if err == nil {
			err = ErrSessionEnded
		}
		if p.OnRestart != nil {
			p.OnRestart(wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		wait *= 2
		if p.Max > 0 && wait > p.Max {
			wait = p.Max
		}
	}
}
