// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package sim

import (
	"sync"
	"time"
)

// Clock is a virtual iossm.Clock: Sleep advances Now without blocking.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps int
}

func NewClock() *Clock {
	return &Clock{now: time.Unix(0, 0)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.Sleeps++
}
