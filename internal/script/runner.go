package script

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/ivlev/vizdeck/internal/director"
)

// DefaultPollInterval is how often settle checks the presentation
const DefaultPollInterval = 5 * time.Millisecond

// Presenter is the part of a director a script drives
type Presenter interface {
	Next()
	Previous()
	ToStart()
	ToEnd()
	SetSlide(i int)
	Length() int
	Pause()
	Resume()
	Reverse()
	Seek(percent float64)
	BeginScrub(percent float64)
	Scrub(percent float64)
	EndScrub()
	Abort()
	Settled() bool
}

// Runner executes commands one after another
type Runner struct {
	p   Presenter
	clk clock.Clock
	log *zap.SugaredLogger

	// Idle, when set, must also hold for settle to finish
	Idle func() bool
	Poll time.Duration
	// OnCommand is called before each command runs
	OnCommand func(i int, cmd Command)

	scrubbing bool
}

func NewRunner(p Presenter, clk clock.Clock, log *zap.SugaredLogger) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{p: p, clk: clk, log: log, Poll: DefaultPollInterval}
}

// Run executes cmds in order and stops early when ctx is done
func (r *Runner) Run(ctx context.Context, cmds []Command) error {
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.OnCommand != nil {
			r.OnCommand(i, cmd)
		}
		r.log.Debugw("script command", "index", i, "command", cmd.String())
		if err := r.exec(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) exec(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case OpNext:
		r.p.Next()
	case OpPrev:
		r.p.Previous()
	case OpStart:
		r.p.ToStart()
	case OpEnd:
		r.p.ToEnd()
	case OpGoto:
		r.p.SetSlide(director.NormalizeSlideNumber(cmd.Slide, r.p.Length()))
	case OpPause:
		r.p.Pause()
	case OpResume:
		r.p.Resume()
	case OpReverse:
		r.p.Reverse()
	case OpSeek:
		r.p.Seek(cmd.Percent)
	case OpScrub:
		if r.scrubbing {
			r.p.Scrub(cmd.Percent)
		} else {
			r.p.BeginScrub(cmd.Percent)
			r.scrubbing = true
		}
	case OpRelease:
		if r.scrubbing {
			r.p.EndScrub()
			r.scrubbing = false
		}
	case OpAbort:
		r.p.Abort()
	case OpWait:
		return r.sleep(ctx, cmd.Wait)
	case OpSettle:
		return r.settle(ctx)
	}
	return nil
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := r.clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) settled() bool {
	return r.p.Settled() && (r.Idle == nil || r.Idle())
}

func (r *Runner) settle(ctx context.Context) error {
	if r.settled() {
		return nil
	}
	t := r.clk.Ticker(r.Poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if r.settled() {
				return nil
			}
		}
	}
}
