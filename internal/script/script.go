// Package script runs a list of navigation commands against a presentation.
//
// One command per entry:
//
//	next, prev, start, end, goto:N   navigation (N is 1-based, negative counts from the end)
//	pause, resume, reverse, abort    playback control
//	seek:P                           move the animation in flight to P percent
//	scrub:P, release                 hold and drag the position slider, then let go
//	wait:DURATION                    sleep, e.g. wait:1.5s
//	settle                           wait until nothing is queued or playing
package script

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrUnknownCommand = errors.New("unknown command")

type Op string

const (
	OpNext    Op = "next"
	OpPrev    Op = "prev"
	OpStart   Op = "start"
	OpEnd     Op = "end"
	OpGoto    Op = "goto"
	OpPause   Op = "pause"
	OpResume  Op = "resume"
	OpReverse Op = "reverse"
	OpSeek    Op = "seek"
	OpScrub   Op = "scrub"
	OpRelease Op = "release"
	OpAbort   Op = "abort"
	OpWait    Op = "wait"
	OpSettle  Op = "settle"
)

// Command is one parsed script entry
type Command struct {
	Op      Op
	Slide   int           // goto
	Percent float64       // seek, scrub
	Wait    time.Duration // wait
}

func (c Command) String() string {
	switch c.Op {
	case OpGoto:
		return string(c.Op) + ":" + strconv.Itoa(c.Slide)
	case OpSeek, OpScrub:
		return string(c.Op) + ":" + strconv.FormatFloat(c.Percent, 'f', -1, 64)
	case OpWait:
		return string(c.Op) + ":" + c.Wait.String()
	default:
		return string(c.Op)
	}
}

// Parse validates every entry and returns the commands in order
func Parse(lines []string) ([]Command, error) {
	cmds := make([]Command, 0, len(lines))
	for i, line := range lines {
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i+1)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// ParseCommand parses a single entry such as "goto:3" or "wait:500ms"
func ParseCommand(line string) (Command, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(line), ":")
	op := Op(strings.ToLower(strings.TrimSpace(name)))
	arg = strings.TrimSpace(arg)
	cmd := Command{Op: op}

	switch op {
	case OpNext, OpPrev, OpStart, OpEnd, OpPause, OpResume, OpReverse, OpRelease, OpAbort, OpSettle:
		if hasArg {
			return Command{}, errors.Wrapf(ErrUnknownCommand, "%q takes no argument", line)
		}
	case OpGoto:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return Command{}, errors.Wrapf(ErrUnknownCommand, "%q: bad slide number", line)
		}
		cmd.Slide = n
	case OpSeek, OpScrub:
		p, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
		if err != nil || p < 0 || p > 100 {
			return Command{}, errors.Wrapf(ErrUnknownCommand, "%q: percent must be 0..100", line)
		}
		cmd.Percent = p
	case OpWait:
		d, err := time.ParseDuration(arg)
		if err != nil || d < 0 {
			return Command{}, errors.Wrapf(ErrUnknownCommand, "%q: bad duration", line)
		}
		cmd.Wait = d
	default:
		return Command{}, errors.Wrapf(ErrUnknownCommand, "%q", line)
	}
	return cmd, nil
}
