// Package poller drives a collection run: one device at a time through
// connect, capture, parse and enrich, then hands the accumulated results
// to the dataset builder. One device's failure never aborts the run.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fpcollect/fpcollect/internal/collector"
	"github.com/fpcollect/fpcollect/internal/config"
	"github.com/fpcollect/fpcollect/internal/dataset"
	"github.com/fpcollect/fpcollect/internal/inference"
	"github.com/fpcollect/fpcollect/internal/model"
	"github.com/fpcollect/fpcollect/internal/parser"
	"github.com/fpcollect/fpcollect/internal/session"
)

// Opener establishes a command shell on a device. Satisfied by the SSH
// session manager and by test fakes.
type Opener interface {
	Open(ctx context.Context, node string) (collector.Shell, error)
}

// Prober checks device reachability before the SSH attempt. Optional.
type Prober interface {
	Probe(ctx context.Context, node string) error
}

// Archiver receives raw captures and parse failures for debug output.
// Notification only: archiver errors are logged by the archiver itself
// and never influence the run.
type Archiver interface {
	SaveCapture(runID uuid.UUID, c model.RawCapture)
	SaveParseError(runID uuid.UUID, node, section, reason string)
}

type Runner struct {
	cfg      *config.Config
	opener   Opener
	prober   Prober
	archiver Archiver
	exec     *collector.Executor
	engine   *inference.Engine
	builder  *dataset.Builder
	specs    []collector.Spec
	logger   *slog.Logger
	now      func() time.Time
}

func NewRunner(cfg *config.Config, opener Opener, engine *inference.Engine, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		opener:  opener,
		exec:    collector.NewExecutor(logger),
		engine:  engine,
		builder: dataset.NewBuilder(cfg.Alerts),
		specs:   collector.DefaultSpecs(),
		logger:  logger.With("component", "poller"),
		now:     time.Now,
	}
}

// WithProber enables the pre-connect reachability probe.
func (r *Runner) WithProber(p Prober) *Runner {
	r.prober = p
	return r
}

// WithArchiver enables debug artifact capture.
func (r *Runner) WithArchiver(a Archiver) *Runner {
	r.archiver = a
	return r
}

// NewSessionOpener adapts the SSH session manager to the Opener surface.
func NewSessionOpener(m *session.Manager) Opener {
	return sessionOpener{m: m}
}

type sessionOpener struct{ m *session.Manager }

func (o sessionOpener) Open(ctx context.Context, node string) (collector.Shell, error) {
	return o.m.Open(ctx, node)
}

// Run polls every node sequentially and returns the aggregated dataset.
// Devices are never polled twice; cancellation between devices leaves the
// remaining nodes in the pending state.
func (r *Runner) Run(ctx context.Context, nodes []string) (*model.Dataset, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no devices to poll")
	}

	runID := uuid.New()
	startedAt := r.now()
	r.logger.Info("run started", "run_id", runID, "devices", len(nodes))

	results := make([]*model.DeviceResult, 0, len(nodes))
	statuses := make([]model.DeviceStatus, 0, len(nodes))

	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			for _, rest := range nodes[i:] {
				statuses = append(statuses, model.DeviceStatus{
					Node:  rest,
					State: model.StatePending,
					Error: "run canceled",
				})
			}
			break
		}

		begin := r.now()
		res, st := r.collectDevice(ctx, runID, node)
		st.Elapsed = r.now().Sub(begin)
		statuses = append(statuses, st)
		if res != nil {
			results = append(results, res)
		}
		r.logger.Info("device finished",
			"node", node,
			"state", st.State,
			"elapsed", st.Elapsed,
		)
	}

	ds := r.builder.Build(runID, startedAt, results, statuses)
	r.logger.Info("run finished",
		"run_id", runID,
		"enriched", ds.Summary.EnrichedNodes,
		"total", ds.Summary.TotalNodes,
		"alerts", ds.Summary.AlertCount,
	)
	return ds, nil
}

// collectDevice walks one device through the state machine. The returned
// status always carries a terminal state; a nil result means nothing was
// collected.
func (r *Runner) collectDevice(ctx context.Context, runID uuid.UUID, node string) (*model.DeviceResult, model.DeviceStatus) {
	st := model.DeviceStatus{Node: node, State: model.StatePending}
	log := r.logger.With("node", node)

	if r.prober != nil && r.cfg.Probe.Enabled {
		if err := r.prober.Probe(ctx, node); err != nil {
			log.Warn("reachability probe failed", "error", err)
			st.State = model.StateFailed
			st.Error = fmt.Sprintf("unreachable: %v", err)
			return nil, st
		}
	}

	st.State = model.StateConnecting
	sh, err := r.opener.Open(ctx, node)
	if err != nil {
		log.Error("session open failed", "error", err)
		st.State = model.StateFailed
		st.Error = err.Error()
		return nil, st
	}
	defer sh.Close()

	st.State = model.StateCollecting
	captures := r.exec.Run(ctx, node, sh, r.specs)
	if r.archiver != nil {
		for _, c := range captures.Captures {
			r.archiver.SaveCapture(runID, c)
		}
	}
	if len(captures.Captures) == 0 {
		st.State = model.StateFailed
		st.Error = "no command produced output"
		return nil, st
	}

	st.State = model.StateParsing
	res := r.parseDevice(runID, node, captures)

	st.State = model.StateEnriched
	r.enrich(res, captures)

	st.State = model.StateDone
	if len(res.Missing) > 0 {
		st.Error = fmt.Sprintf("%d section(s) missing", len(res.Missing))
	}
	return res, st
}

var divreRE = regexp.MustCompile(`^[A-Za-z0-9]+`)

// Divre derives the regional code from the node name, the leading
// alphanumeric token.
func Divre(node string) string {
	if m := divreRE.FindString(node); m != "" {
		return m
	}
	return node
}

// parseDevice converts each captured section into records, recording
// per-section reasons for anything absent.
func (r *Runner) parseDevice(runID uuid.UUID, node string, captures collector.CaptureSet) *model.DeviceResult {
	res := &model.DeviceResult{
		Node:    node,
		Missing: make(map[string]string),
	}

	for _, spec := range r.specs {
		if reason, failed := captures.FailureReason(spec.Name); failed {
			res.Missing[spec.Name] = reason
		}
	}

	collectedAt := r.deviceTime(captures)
	divre := Divre(node)

	if c, ok := captures.Get(collector.SectionInterfaces); ok {
		ifaces, err := parser.ParseInterfaces(c)
		if err != nil {
			r.noteParseError(runID, res, collector.SectionInterfaces, err)
		} else {
			for _, in := range ifaces {
				capDisplay, capBps := parser.CapacityFromSpeed(in.Speed)
				res.Ports = append(res.Ports, model.PortRecord{
					Node:        node,
					Divre:       divre,
					Interface:   in.Name,
					Description: in.Description,
					Capacity:    capDisplay,
					CapacityBps: capBps,
					TrafficBps:  in.PeakBps(),
					LastFlapped: in.LastFlapped,
					FlapAge:     in.FlapAge,
					Configured:  in.Description != "",
					CollectedAt: collectedAt,
				})
			}
		}
	}

	if c, ok := captures.Get(collector.SectionHardware); ok {
		items, err := parser.ParseHardware(c)
		if err != nil {
			r.noteParseError(runID, res, collector.SectionHardware, err)
		} else {
			for _, it := range items {
				res.Inventory = append(res.Inventory, model.InventoryRecord{
					Node:         node,
					Divre:        divre,
					Component:    it.Component,
					Slot:         it.Slot,
					PartNumber:   it.PartNumber,
					SerialNumber: it.SerialNumber,
					Model:        it.Model,
					Version:      it.Version,
					Status:       it.State,
					Remarks:      it.Remarks(),
					CollectedAt:  collectedAt,
				})
			}
		}
	}

	if c, ok := captures.Get(collector.SectionAlarms); ok {
		alarms, err := parser.ParseAlarms(c)
		if err != nil {
			r.noteParseError(runID, res, collector.SectionAlarms, err)
		} else {
			for _, a := range alarms {
				res.Alarms = append(res.Alarms, model.AlarmRecord{
					Node:        node,
					Divre:       divre,
					RawTime:     a.Time,
					Time:        collectedAt,
					Class:       a.Class,
					Severity:    severityFromClass(a.Class),
					Description: a.Description,
					Status:      "ACTIVE",
				})
			}
		}
	}

	res.Health = r.parseHealth(runID, node, divre, captures, collectedAt)
	return res
}

// parseHealth assembles the per-device system performance row from the
// small health sections. Any individual section may be absent.
func (r *Runner) parseHealth(runID uuid.UUID, node, divre string, captures collector.CaptureSet, collectedAt model.ZonedTime) *model.SystemHealthRecord {
	h := &model.SystemHealthRecord{
		Node:        node,
		Divre:       divre,
		Loopback:    "-",
		CollectedAt: collectedAt,
	}
	seen := false

	if c, ok := captures.Get(collector.SectionRoutingEngine); ok {
		st, err := parser.ParseRoutingEngine(c)
		if err == nil {
			seen = true
			if st.CPUUsedPct != nil {
				h.CPUUsedPct = *st.CPUUsedPct
			}
			if st.MemoryUsedPct != nil {
				h.MemoryUsedPct = *st.MemoryUsedPct
			}
			if st.TemperatureC != nil {
				h.TemperatureC = *st.TemperatureC
			}
		}
	}
	if h.MemoryUsedPct == 0 {
		if c, ok := captures.Get(collector.SectionMemory); ok {
			if pct, err := parser.ParseSystemMemory(c); err == nil {
				seen = true
				h.MemoryUsedPct = *pct
			}
		}
	}

	var storage *parser.Storage
	if c, ok := captures.Get(collector.SectionStorageXML); ok {
		if st, err := parser.ParseStorageXML(c); err == nil {
			storage = st
		}
	}
	if storage == nil {
		if c, ok := captures.Get(collector.SectionStorageText); ok {
			if st, err := parser.ParseStorageText(c); err == nil {
				storage = st
			}
		}
	}
	if storage != nil {
		seen = true
		h.StorageTotalMB = storage.TotalMB
		h.StorageUsedMB = storage.UsedMB
		h.StorageFreeMB = storage.FreeMB
		h.StorageUtilPct = storage.UtilPct
	}

	if c, ok := captures.Get(collector.SectionVersion); ok {
		info, err := parser.ParseVersion(c)
		if err != nil {
			r.noteParseErrorHealth(runID, node, collector.SectionVersion, err)
		} else {
			seen = true
			h.SoftwareVersion = info.Version
			h.SoftwareType = info.OSType
			h.Platform = info.Model
		}
	}

	if c, ok := captures.Get(collector.SectionLoopback); ok {
		if ip := parser.ParseLoopback(c); ip != "" {
			h.Loopback = ip
		}
	}

	if !seen {
		return nil
	}
	return h
}

// enrich runs the inference passes over the parsed records. Enrichment
// is idempotent: resolved fields are never overwritten.
func (r *Runner) enrich(res *model.DeviceResult, captures collector.CaptureSet) {
	items := make([]parser.HardwareItem, 0, len(res.Inventory))
	for _, inv := range res.Inventory {
		items = append(items, parser.HardwareItem{
			Component:  inv.Component,
			Slot:       inv.Slot,
			PartNumber: inv.PartNumber,
			Model:      inv.Model,
		})
	}
	fpcModels := r.engine.BuildFPCModelMap(items)

	optics := map[string]string{}
	if c, ok := captures.Get(collector.SectionOptics); ok {
		if m, err := parser.ParseOptics(c); err == nil {
			optics = m
		}
	}

	for i := range res.Ports {
		p := &res.Ports[i]
		desc := optics[p.Interface]
		if desc == "" {
			base, _, _ := strings.Cut(p.Interface, ".")
			desc = optics[base]
		}
		p.ModuleType = r.engine.ModuleType(p.Interface, p.ModuleType, fpcModels, desc)
		p.SFPType = r.engine.SFPType(p.Interface, p.SFPType, desc)
		p.SFPPresent = desc != ""
	}

	if res.Health != nil {
		res.Health.Platform = r.engine.Platform(items, res.Health.Platform, res.Node)
	}
}

// deviceTime resolves the run's record timestamp from the device clock
// when the uptime section parsed, else the collector host clock with no
// zone claim.
func (r *Runner) deviceTime(captures collector.CaptureSet) model.ZonedTime {
	fallback := model.ZonedTime{Time: r.now()}
	c, ok := captures.Get(collector.SectionUptime)
	if !ok {
		return fallback
	}
	info, err := parser.ParseUptime(c)
	if err != nil {
		return fallback
	}
	zone, loc := r.engine.Zone(info.ZoneToken)
	if !isNamedZone(zone) {
		zone = ""
	}
	token := ""
	if loc == nil {
		// Unknown token: carry the device wall-clock and the token
		// verbatim instead of claiming any offset.
		loc = time.FixedZone(info.ZoneToken, 0)
		token = info.ZoneToken
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", info.CurrentTime, loc)
	if err != nil {
		return fallback
	}
	return model.ZonedTime{Time: t, Zone: zone, Token: token}
}

func isNamedZone(zone string) bool {
	switch zone {
	case "WIB", "WITA", "WIT":
		return true
	}
	return false
}

func (r *Runner) noteParseError(runID uuid.UUID, res *model.DeviceResult, section string, err error) {
	r.logger.Warn("parse failed", "node", res.Node, "section", section, "error", err)
	res.Missing[section] = err.Error()
	if r.archiver != nil {
		r.archiver.SaveParseError(runID, res.Node, section, err.Error())
	}
}

func (r *Runner) noteParseErrorHealth(runID uuid.UUID, node, section string, err error) {
	r.logger.Warn("parse failed", "node", node, "section", section, "error", err)
	if r.archiver != nil {
		r.archiver.SaveParseError(runID, node, section, err.Error())
	}
}

// severityFromClass maps Junos alarm classes onto report severities.
func severityFromClass(class string) string {
	switch strings.ToLower(strings.TrimSpace(class)) {
	case "major", "red":
		return "CRITICAL"
	case "minor", "yellow":
		return "WARNING"
	case "":
		return "Unknown"
	}
	return strings.ToUpper(class)
}
