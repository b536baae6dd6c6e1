// Package dataset assembles per-device results into the canonical
// run Dataset: it applies the alert rules, computes derived figures and
// rolls up the dashboard summary exactly once.
package dataset

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fpcollect/fpcollect/internal/config"
	"github.com/fpcollect/fpcollect/internal/model"
)

// Flap alert bucket labels, most severe first. Stable is the quiet
// default for ports whose last flap is old or unknown.
const (
	FlapCritical = "RECENT FLAP - <=5min"
	FlapWarning  = "Recent flap - <=30min"
	FlapInfo     = "Flapped - <=2h"
	FlapStable   = "Stable"
)

type Builder struct {
	cfg config.AlertConfig
}

func NewBuilder(cfg config.AlertConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build merges device results into one Dataset. Records are annotated
// with alert flags here; the summary is computed from the final record
// set so it can never drift from the rows.
func (b *Builder) Build(runID uuid.UUID, startedAt time.Time, results []*model.DeviceResult, statuses []model.DeviceStatus) *model.Dataset {
	ds := &model.Dataset{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Statuses:   statuses,
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		for _, p := range r.Ports {
			b.annotate(&p)
			ds.Ports = append(ds.Ports, p)
		}
		ds.Alarms = append(ds.Alarms, r.Alarms...)
		ds.Inventory = append(ds.Inventory, r.Inventory...)
		if r.Health != nil {
			ds.Health = append(ds.Health, *r.Health)
		}
	}

	ds.Summary = b.summarize(ds)
	return ds
}

// annotate fills the derived fields of a port record in place.
func (b *Builder) annotate(p *model.PortRecord) {
	if p.CapacityBps > 0 {
		p.Utilization = float64(p.TrafficBps) / float64(p.CapacityBps) * 100.0
		if p.Utilization > 100 {
			p.Utilization = 100
		}
	} else {
		p.Utilization = 0
		p.CapacityUnknown = true
	}
	p.TrafficGB = float64(p.TrafficBps) / 8.0 / 1e9

	p.FlapAlert = b.FlapBucket(p.FlapAge)
	p.Alert = p.Utilization >= b.cfg.UtilizationThresholdPct || p.FlapAlert != FlapStable

	if p.Status == "" {
		if p.Configured || p.TrafficBps > 0 {
			p.Status = "USED"
		} else {
			p.Status = "UNUSED"
		}
	}
}

// FlapBucket classifies how recently a port flapped. A nil age means
// the device never reported a parseable flap time.
func (b *Builder) FlapBucket(age *time.Duration) string {
	if age == nil {
		return FlapStable
	}
	switch {
	case *age <= b.cfg.FlapCriticalWithin:
		return FlapCritical
	case *age <= b.cfg.FlapWarningWithin:
		return FlapWarning
	case *age <= b.cfg.FlapInfoWithin:
		return FlapInfo
	}
	return FlapStable
}

func (b *Builder) summarize(ds *model.Dataset) model.Summary {
	s := model.Summary{
		TotalNodes:         len(ds.Statuses),
		ActiveInterfaces:   len(ds.Ports),
		HardwareComponents: len(ds.Inventory),
		ActiveAlarms:       len(ds.Alarms),
		FlapCounts:         make(map[string]int),
		SeverityCounts:     make(map[string]int),
	}

	for _, st := range ds.Statuses {
		if st.State == model.StateDone {
			s.EnrichedNodes++
		}
	}

	for _, p := range ds.Ports {
		if p.Alert {
			s.AlertCount++
		}
		s.FlapCounts[p.FlapAlert]++
	}

	for _, a := range ds.Alarms {
		sev := a.Severity
		if sev == "" {
			sev = "Unknown"
		}
		s.SeverityCounts[sev]++
	}

	s.TopUtilization = topUtilization(ds.Ports, b.cfg.TopN)
	return s
}

// topUtilization returns the n busiest ports; ties break on node then
// interface name so the table is stable run to run.
func topUtilization(ports []model.PortRecord, n int) []model.PortRecord {
	sorted := make([]model.PortRecord, len(ports))
	copy(sorted, ports)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Utilization != sorted[j].Utilization {
			return sorted[i].Utilization > sorted[j].Utilization
		}
		if sorted[i].Node != sorted[j].Node {
			return sorted[i].Node < sorted[j].Node
		}
		return sorted[i].Interface < sorted[j].Interface
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
