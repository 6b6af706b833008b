package channel

import (
	"context"
	"sync"
	"time"

	"tradient/logger"
	"tradient/models"
)

// Stats counts traffic through a channel set, including messages
// dropped because a buffer was full.
type Stats struct {
	EventsSent           int64
	EventsDropped        int64
	OpportunitiesSent    int64
	OpportunitiesDropped int64
}

// Channels carries the two flows of the system: normalized market
// events from the readers, and ranked opportunity batches from the
// scanner. Sends never block; a full buffer increments a drop counter
// instead, so a slow consumer cannot stall a receive loop.
type Channels struct {
	Events        chan models.Event
	Opportunities chan []models.ArbitrageOpportunity

	stats      Stats
	statsMutex sync.RWMutex
	log        *logger.Log
}

// NewChannels creates the channel set with the configured buffers.
func NewChannels(eventBuffer, opportunityBuffer int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Events:        make(chan models.Event, eventBuffer),
		Opportunities: make(chan []models.ArbitrageOpportunity, opportunityBuffer),
		log:           log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"event_buffer":       eventBuffer,
		"opportunity_buffer": opportunityBuffer,
	}).Info("channels initialized")

	return c
}

// Close releases both channels. Call only after every producer has
// stopped.
func (c *Channels) Close() {
	close(c.Events)
	close(c.Opportunities)
	c.log.WithComponent("channels").Info("channels closed")
}

// SendEvent forwards a market event without blocking. Returns false
// when the context is done or the buffer is full.
func (c *Channels) SendEvent(ctx context.Context, ev models.Event) bool {
	select {
	case c.Events <- ev:
		c.statsMutex.Lock()
		c.stats.EventsSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.EventsDropped++
		c.statsMutex.Unlock()
		return false
	}
}

// SendOpportunities forwards one scan cycle's ranked results.
func (c *Channels) SendOpportunities(ctx context.Context, ops []models.ArbitrageOpportunity) bool {
	select {
	case c.Opportunities <- ops:
		c.statsMutex.Lock()
		c.stats.OpportunitiesSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.OpportunitiesDropped++
		c.statsMutex.Unlock()
		return false
	}
}

// GetStats returns a copy of the current counters.
func (c *Channels) GetStats() Stats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

// StartMetricsReporting logs channel depth and drop counters on an
// interval until the context is cancelled.
func (c *Channels) StartMetricsReporting(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	log := c.log.WithComponent("channels")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.GetStats()
			log.WithFields(logger.Fields{
				"events_depth":          len(c.Events),
				"events_sent":           stats.EventsSent,
				"events_dropped":        stats.EventsDropped,
				"opportunities_sent":    stats.OpportunitiesSent,
				"opportunities_dropped": stats.OpportunitiesDropped,
			}).Debug("channel metrics")
		}
	}
}
