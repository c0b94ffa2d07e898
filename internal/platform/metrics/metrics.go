package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64
	loginSuccess    atomic.Uint64
	loginFailure    atomic.Uint64
	logouts         atomic.Uint64
	loadingPages    atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	if status == 429 {
		c.rateLimited.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) RecordLogin(ok bool) {
	if ok {
		c.loginSuccess.Add(1)
		return
	}
	c.loginFailure.Add(1)
}

func (c *Collector) RecordLogout() { c.logouts.Add(1) }

// RecordLoadingPage counts protected requests answered with the loading placeholder.
func (c *Collector) RecordLoadingPage() { c.loadingPages.Add(1) }

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       c.errorRequests.Load(),
		"rateLimitedTotal":  c.rateLimited.Load(),
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"loginSuccessTotal": c.loginSuccess.Load(),
		"loginFailureTotal": c.loginFailure.Load(),
		"logoutTotal":       c.logouts.Load(),
		"loadingPagesTotal": c.loadingPages.Load(),
	}
}
