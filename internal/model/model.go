// Package model defines the canonical record schema shared by the
// collection pipeline: everything parsed from a device ends up in one of
// these record types, and the aggregated Dataset is the sole artifact
// handed to the report writer.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeviceState tracks a device through the per-run state machine.
type DeviceState string

const (
	StatePending    DeviceState = "pending"
	StateConnecting DeviceState = "connecting"
	StateCollecting DeviceState = "collecting"
	StateParsing    DeviceState = "parsing"
	StateEnriched   DeviceState = "enriched"
	StateDone       DeviceState = "done"
	StateFailed     DeviceState = "failed"
)

// DeviceStatus is one row of the per-device status table returned
// alongside the Dataset.
type DeviceStatus struct {
	Node    string
	State   DeviceState
	Error   string
	Elapsed time.Duration
}

// RawCapture is the raw text of one command on one device. It is owned by
// the command executor until the parser consumes it; the optional debug
// archive gets a copy, nothing else holds on to it.
type RawCapture struct {
	ID         uuid.UUID
	Node       string
	Command    string
	Output     string
	CapturedAt time.Time
}

// ZonedTime is a timestamp qualified with one of the supported Indonesian
// zones. Zone is empty when the device offset could not be mapped; the
// timestamp then renders with its raw offset, or with the device's own
// zone token kept verbatim in Token when the offset is unknown too.
type ZonedTime struct {
	Time  time.Time
	Zone  string // "WIB", "WITA", "WIT", or "" when unresolved
	Token string // device-reported zone token, set only when unresolved
}

// Resolved reports whether the timestamp carries a known zone.
func (z ZonedTime) Resolved() bool { return z.Zone != "" }

func (z ZonedTime) String() string {
	if z.Time.IsZero() {
		return "-"
	}
	if z.Zone != "" {
		return fmt.Sprintf("%s %s", z.Time.Format("2006-01-02 15:04:05"), z.Zone)
	}
	if z.Token != "" {
		// Unresolved token: device wall-clock with its own label, no
		// offset claim.
		return fmt.Sprintf("%s %s", z.Time.Format("2006-01-02 15:04:05"), z.Token)
	}
	return z.Time.Format("2006-01-02 15:04:05 -0700")
}

// PortRecord is one physical or aggregated port on one device for one run.
// Records are immutable once emitted; inference fills fields only while
// they are still unset.
type PortRecord struct {
	Node        string
	Divre       string
	Interface   string
	Description string

	ModuleType string
	SFPPresent bool
	SFPType    string

	Capacity        string // display form, e.g. "10Gbps"
	CapacityBps     int64
	CapacityUnknown bool
	TrafficBps      int64
	TrafficGB       float64
	Utilization     float64 // percent, 0..100

	Alert     bool
	FlapAlert string
	// LastFlapped keeps the device-reported string verbatim; FlapAge is
	// the parsed "ago" portion when recognizable.
	LastFlapped string
	FlapAge     *time.Duration

	Configured bool
	Status     string // USED / UNUSED

	CollectedAt ZonedTime
}

// AlarmRecord is one active alarm reported by a device.
type AlarmRecord struct {
	Node        string
	Divre       string
	Time        ZonedTime
	RawTime     string
	Class       string
	Severity    string
	Description string
	Status      string
}

// InventoryRecord is one chassis hardware component.
type InventoryRecord struct {
	Node         string
	Divre        string
	Component    string
	Slot         string
	PartNumber   string
	SerialNumber string
	Model        string
	Version      string
	Status       string
	Remarks      string
	CollectedAt  ZonedTime
}

// SystemHealthRecord is the per-device system performance row.
type SystemHealthRecord struct {
	Node            string
	Divre           string
	Platform        string
	SoftwareType    string // JUNOS or Junos EVO
	SoftwareVersion string
	Loopback        string

	CPUUsedPct    int
	MemoryUsedPct int

	StorageTotalMB int
	StorageUsedMB  int
	StorageFreeMB  int
	StorageUtilPct int

	TemperatureC int

	CollectedAt ZonedTime
}

// DeviceResult bundles everything collected from a single device. Sections
// whose command or parse failed are listed in Missing with the reason; an
// absent section is explicit data, never a nil surprise downstream.
type DeviceResult struct {
	Node      string
	Ports     []PortRecord
	Alarms    []AlarmRecord
	Inventory []InventoryRecord
	Health    *SystemHealthRecord

	// Missing maps section name to the reason its records are absent.
	Missing map[string]string
}

// SectionAbsent reports whether the named section produced no records
// because of a command or parse failure.
func (r *DeviceResult) SectionAbsent(section string) bool {
	_, ok := r.Missing[section]
	return ok
}

// Summary holds the dashboard rollups, computed once at aggregation time.
type Summary struct {
	TotalNodes         int
	EnrichedNodes      int
	ActiveInterfaces   int
	HardwareComponents int
	ActiveAlarms       int
	AlertCount         int

	// TopUtilization holds the top-N ports by utilization percent.
	TopUtilization []PortRecord

	// FlapCounts buckets ports by flap-alert level.
	FlapCounts map[string]int

	// SeverityCounts buckets alarms by severity.
	SeverityCounts map[string]int
}

// Dataset is the aggregate of all record collections for one run plus the
// summary rollups. Append-only during the run, read-only afterwards.
type Dataset struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	Ports     []PortRecord
	Alarms    []AlarmRecord
	Inventory []InventoryRecord
	Health    []SystemHealthRecord

	Statuses []DeviceStatus
	Summary  Summary
}

// Succeeded reports overall run success: at least one device reached the
// enriched stage.
func (d *Dataset) Succeeded() bool {
	return d.Summary.EnrichedNodes > 0
}

// StatusFor returns the status row for a node, if present.
func (d *Dataset) StatusFor(node string) (DeviceStatus, bool) {
	for _, s := range d.Statuses {
		if s.Node == node {
			return s, true
		}
	}
	return DeviceStatus{}, false
}
