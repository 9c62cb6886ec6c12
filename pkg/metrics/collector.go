package metrics

import (
	"time"

	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

// Collector periodically reads fleet gauges out of the store
type Collector struct {
	store  *storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store *storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectWorkspaceMetrics()
	c.collectParticipantMetrics()
}

func (c *Collector) collectWorkspaceMetrics() {
	workspaces := c.store.ListWorkspaces()

	stateCounts := make(map[types.WorkspaceState]int)
	familyCounts := make(map[types.ImageFamily]int)
	for _, w := range workspaces {
		stateCounts[w.State]++
		familyCounts[w.Family]++
	}

	// Reset so vanished states drop to zero
	WorkspacesTotal.Reset()
	for state, count := range stateCounts {
		WorkspacesTotal.WithLabelValues(string(state)).Set(float64(count))
	}
	WorkspacesByFamily.Reset()
	for family, count := range familyCounts {
		WorkspacesByFamily.WithLabelValues(string(family)).Set(float64(count))
	}
}

func (c *Collector) collectParticipantMetrics() {
	participants := c.store.ListParticipants()

	assigned := 0
	for _, p := range participants {
		if p.WorkspaceID != "" {
			assigned++
		}
	}

	ParticipantsTotal.Set(float64(len(participants)))
	ParticipantsAssigned.Set(float64(assigned))
}
