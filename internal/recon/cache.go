package recon

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"gl-reconciler/internal/domain"
)

// Fingerprint computes a content hash over both datasets. Two runs over
// byte-identical inputs produce the same fingerprint, so it can key a
// ReportCache across runs within a process.
func Fingerprint(excel, sql *domain.Dataset) string {
	h := sha256.New()
	for _, ds := range []*domain.Dataset{excel, sql} {
		h.Write([]byte(ds.Source))
		for _, rec := range ds.Records {
			h.Write([]byte(rec.Date.Format("2006-01-02")))
			h.Write([]byte{0})
			h.Write([]byte(rec.Account))
			h.Write([]byte{0})
			h.Write([]byte(rec.Description))
			h.Write([]byte{0})
			h.Write([]byte(rec.Amount.String()))
			h.Write([]byte{0})
			h.Write([]byte(rec.Reference))
			h.Write([]byte{1})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ReportCache is an explicit in-memory cache of reconciliation reports keyed
// by input fingerprint. The caller owns its lifetime; there is no implicit
// process-wide state.
type ReportCache struct {
	mu    sync.RWMutex
	store map[string]*domain.ReconciliationReport
}

// NewReportCache creates an empty report cache.
func NewReportCache() *ReportCache {
	return &ReportCache{
		store: make(map[string]*domain.ReconciliationReport),
	}
}

// Get retrieves a cached report by fingerprint.
func (c *ReportCache) Get(fingerprint string) (*domain.ReconciliationReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report, found := c.store[fingerprint]
	return report, found
}

// Set stores a report under its fingerprint.
func (c *ReportCache) Set(fingerprint string, report *domain.ReconciliationReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[fingerprint] = report
}

// Clear removes all cached reports.
func (c *ReportCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*domain.ReconciliationReport)
}

// Size returns the number of cached reports.
func (c *ReportCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}
