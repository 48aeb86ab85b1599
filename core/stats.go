package core

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/searchktools/fast-static/core/cache"
	"github.com/searchktools/fast-static/core/observability"
	"github.com/searchktools/fast-static/core/pools"
)

type counters struct {
	accepted  uint64
	closed    uint64
	requests  uint64
	status2xx uint64
	status3xx uint64
	status4xx uint64
	status5xx uint64
}

func (c *counters) record(code int) {
	switch {
	case code >= 500:
		c.status5xx++
	case code >= 400:
		c.status4xx++
	case code >= 300:
		c.status3xx++
	default:
		c.status2xx++
	}
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Connections ConnectionStats         `json:"connections"`
	Requests    RequestStats            `json:"requests"`
	Send        SendStats               `json:"send"`
	Cache       *cache.Stats            `json:"cache,omitempty"`
	Buffers     pools.BytePoolStats     `json:"buffers"`
	Latency     []observability.Latency `json:"latency"`
}

type ConnectionStats struct {
	Accepted uint64 `json:"accepted"`
	Closed   uint64 `json:"closed"`
	Active   int    `json:"active"`
}

type RequestStats struct {
	Total     uint64 `json:"total"`
	Status2xx uint64 `json:"status_2xx"`
	Status3xx uint64 `json:"status_3xx"`
	Status4xx uint64 `json:"status_4xx"`
	Status5xx uint64 `json:"status_5xx"`
}

// Stats returns engine statistics. Call it from the event loop goroutine or
// after Serve has returned.
func (e *Engine) Stats() Stats {
	stats := Stats{
		Connections: ConnectionStats{
			Accepted: e.counters.accepted,
			Closed:   e.counters.closed,
			Active:   len(e.sessions),
		},
		Requests: RequestStats{
			Total:     e.counters.requests,
			Status2xx: e.counters.status2xx,
			Status3xx: e.counters.status3xx,
			Status4xx: e.counters.status4xx,
			Status5xx: e.counters.status5xx,
		},
		Buffers: e.bytePool.Stats(),
		Latency: e.monitor.Snapshot(),
	}
	if e.sender != nil {
		stats.Send = e.sender.Stats()
	}
	if e.dispatcher != nil && e.dispatcher.cache != nil {
		cs := e.dispatcher.cache.Stats()
		stats.Cache = &cs
	}
	return stats
}

// StatsJSON returns engine statistics as indented JSON.
func (e *Engine) StatsJSON() string {
	data, _ := json.MarshalIndent(e.Stats(), "", "  ")
	return string(data)
}

// StatsText returns engine statistics as human-readable text.
func (e *Engine) StatsText() string {
	s := e.Stats()
	text := fmt.Sprintf(`Server Statistics
=================

Connections:
  Accepted: %d
  Closed:   %d
  Active:   %d

Requests:
  Total: %d
  2xx:   %d
  3xx:   %d
  4xx:   %d
  5xx:   %d

Send:
  Sent:     %s
  Retries:  %d
  Timeouts: %d
  Failures: %d
`,
		s.Connections.Accepted, s.Connections.Closed, s.Connections.Active,
		s.Requests.Total, s.Requests.Status2xx, s.Requests.Status3xx, s.Requests.Status4xx, s.Requests.Status5xx,
		humanize.IBytes(s.Send.BytesSent), s.Send.Retries, s.Send.Timeouts, s.Send.Failures,
	)
	if s.Cache != nil {
		text += fmt.Sprintf(`
Cache:
  Used:      %s of %s
  Entries:   %d
  Hits:      %d
  Misses:    %d
  Evictions: %d
`,
			humanize.IBytes(uint64(s.Cache.Used)), humanize.IBytes(uint64(s.Cache.Capacity)),
			s.Cache.Entries, s.Cache.Hits, s.Cache.Misses, s.Cache.Evictions,
		)
	}
	if len(s.Latency) > 0 {
		text += "\nLatency:\n"
		for _, l := range s.Latency {
			text += fmt.Sprintf("  %-32s count=%d mean=%v max=%v\n", l.Outcome, l.Count, l.Mean, l.Max)
		}
	}
	return text
}
