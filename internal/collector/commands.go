package collector

import "time"

// Section names used as capture keys and as Missing-section markers
// downstream.
const (
	SectionInterfaces    = "interfaces"
	SectionHardware      = "chassis-hardware"
	SectionAlarms        = "chassis-alarms"
	SectionOptics        = "optics"
	SectionRoutingEngine = "routing-engine"
	SectionMemory        = "system-memory"
	SectionStorageXML    = "storage-xml"
	SectionStorageText   = "storage-text"
	SectionVersion       = "version"
	SectionLoopback      = "loopback"
	SectionUptime        = "uptime"
)

// Spec describes one diagnostic command. Timeout zero means the session
// default.
type Spec struct {
	Name    string
	Command string
	Timeout time.Duration
}

// DefaultSpecs returns the fixed diagnostic command sequence. Order
// matters: cheap health commands run first so a session that dies
// mid-capture still yields the small sections.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: SectionUptime, Command: "show system uptime | no-more"},
		{Name: SectionVersion, Command: "show version | no-more", Timeout: 30 * time.Second},
		{Name: SectionRoutingEngine, Command: "show chassis routing-engine | no-more", Timeout: 40 * time.Second},
		{Name: SectionMemory, Command: "show system memory | no-more", Timeout: 40 * time.Second},
		{Name: SectionStorageXML, Command: "show system storage | display xml | no-more", Timeout: 55 * time.Second},
		{Name: SectionStorageText, Command: "show system storage | no-more", Timeout: 55 * time.Second},
		{Name: SectionHardware, Command: "show chassis hardware detail | display xml | no-more", Timeout: 60 * time.Second},
		{Name: SectionOptics, Command: "show interfaces diagnostics optics | display xml | no-more", Timeout: 60 * time.Second},
		{Name: SectionAlarms, Command: "show chassis alarms | display xml | no-more", Timeout: 30 * time.Second},
		{Name: SectionInterfaces, Command: "show interfaces extensive | display xml | no-more", Timeout: 120 * time.Second},
		{Name: SectionLoopback, Command: "show interfaces lo0.0 | display xml | no-more", Timeout: 20 * time.Second},
	}
}
