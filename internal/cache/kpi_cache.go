package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/primetable/partnerboard/internal/events"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
)

const defaultKPITTL = 60 * time.Second

// KPICache stores computed overview reports per venue and range. The
// rollup pipeline invalidates by tag as events land, so a hit is never
// staler than the TTL or the last unprocessed event.
type KPICache interface {
	Get(venueID, from, to string) (overviewdomain.Report, bool)
	Set(venueID, from, to string, report overviewdomain.Report)
	// InvalidateTags drops the venue's entries when any tag touches the
	// overview read model.
	InvalidateTags(venueID string, tags []string)
}

type kpiCache struct {
	mu      sync.Mutex
	reports Cache[string, overviewdomain.Report]
	byVenue map[string]map[string]struct{}
	ttl     time.Duration
}

func NewKPICache() KPICache {
	return &kpiCache{
		reports: NewTTLCache[string, overviewdomain.Report](),
		byVenue: make(map[string]map[string]struct{}),
		ttl:     defaultKPITTL,
	}
}

func (c *kpiCache) Get(venueID, from, to string) (overviewdomain.Report, bool) {
	return c.reports.Get(kpiKey(venueID, from, to))
}

func (c *kpiCache) Set(venueID, from, to string, report overviewdomain.Report) {
	key := kpiKey(venueID, from, to)
	c.reports.Set(key, report, c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.byVenue[venueID]
	if !ok {
		keys = make(map[string]struct{})
		c.byVenue[venueID] = keys
	}
	keys[key] = struct{}{}
}

func (c *kpiCache) InvalidateTags(venueID string, tags []string) {
	relevant := false
	for _, tag := range tags {
		if tag == events.TagMetrics {
			relevant = true
			break
		}
	}
	if !relevant {
		return
	}

	c.mu.Lock()
	keys := c.byVenue[venueID]
	delete(c.byVenue, venueID)
	c.mu.Unlock()

	for key := range keys {
		c.reports.Delete(key)
	}
}

func kpiKey(parts ...string) string {
	return strings.Join(parts, "|")
}
