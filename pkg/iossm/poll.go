// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm

import (
	"context"
	"errors"
	"time"
)

const (
	DEFAULT_POLL_INTERVAL = 10 * time.Microsecond
	TIMEOUT               = 120000 * time.Millisecond // mailbox handshake and BIST ceiling
	TIMEOUT_CAL           = 60000 * time.Millisecond  // initial calibration status ceiling
)

var errPollTimeout = errors.New("poll timeout")

// Clock is the time source used while polling.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }

// Poller is a bounded busy-poll: the condition is evaluated every Interval until it
// holds or Timeout has elapsed.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    Clock
}

func (p Poller) clock() Clock {
	if p.Clock == nil {
		return wallClock{}
	}
	return p.Clock
}

// WithTimeout returns a copy of p bounded by d.
func (p Poller) WithTimeout(d time.Duration) Poller {
	p.Timeout = d
	return p
}

// Until polls cond. A cond error stops polling and is returned unchanged.
func (p Poller) Until(ctx context.Context, cond func() (bool, error)) error {
	clk := p.clock()
	start := clk.Now()
	for {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if clk.Now().Sub(start) >= p.Timeout {
			return errPollTimeout
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		clk.Sleep(p.Interval)
	}
}

// WaitForBit polls addr until every bit of mask reads as set (or clear).
func (p Poller) WaitForBit(ctx context.Context, bus Bus, addr uint64, mask uint32, set bool) error {
	return p.Until(ctx, func() (bool, error) {
		v := bus.Read32(addr) & mask
		if set {
			return v == mask, nil
		}
		return v == 0, nil
	})
}
