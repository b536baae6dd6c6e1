package parser

import (
	"testing"

	"github.com/fpcollect/fpcollect/internal/model"
)

func TestParseRoutingEngine(t *testing.T) {
	out := `Routing Engine status:
  Slot 0:
    Current state                  Master
    Temperature                 42 degrees C / 107 degrees F
    CPU temperature             55 degrees C / 131 degrees F
    Memory utilization          37 percent
    CPU utilization:
      User                       3 percent
      Idle                      92 percent
  Slot 1:
    Current state                  Backup
    CPU utilization:
      Idle                      97 percent`
	st, err := ParseRoutingEngine(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseRoutingEngine() error = %v", err)
	}
	if st.CPUUsedPct == nil || *st.CPUUsedPct != 8 {
		t.Errorf("CPUUsedPct = %v, want 8 (busiest engine)", st.CPUUsedPct)
	}
	if st.MemoryUsedPct == nil || *st.MemoryUsedPct != 37 {
		t.Errorf("MemoryUsedPct = %v, want 37", st.MemoryUsedPct)
	}
	if st.TemperatureC == nil || *st.TemperatureC != 42 {
		t.Errorf("TemperatureC = %v, want 42 (CPU temperature line ignored)", st.TemperatureC)
	}
}

func TestParseRoutingEngineEmpty(t *testing.T) {
	if _, err := ParseRoutingEngine(model.RawCapture{Output: "error: command not found"}); err == nil {
		t.Fatal("want error for unrecognized output")
	}
}

func TestParseSystemMemory(t *testing.T) {
	out := `System memory usage distribution:
  Total memory: 16777216 Kbytes (100%)
  Reserved memory: 262144 Kbytes
  Free memory: 8388608 Kbytes
  Cache memory: 2097152 Kbytes
  Inactive memory: 1048576 Kbytes`
	pct, err := ParseSystemMemory(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseSystemMemory() error = %v", err)
	}
	// (16384+256-8192-2048-1024) / 16640 MB ~= 32%
	if *pct < 31 || *pct > 33 {
		t.Errorf("pct = %d, want ~32", *pct)
	}
}

func TestParseStorageXMLPrefersVar(t *testing.T) {
	out := `<rpc-reply>
  <system-storage-information>
    <filesystem>
      <filesystem-name>/dev/gpt/junos</filesystem-name>
      <total-blocks>20G</total-blocks>
      <used-blocks>5G</used-blocks>
      <available-blocks>15G</available-blocks>
      <used-percent>25</used-percent>
      <mounted-on>/.mount</mounted-on>
    </filesystem>
    <filesystem>
      <filesystem-name>/dev/gpt/var</filesystem-name>
      <total-blocks>10G</total-blocks>
      <used-blocks>7G</used-blocks>
      <available-blocks>3G</available-blocks>
      <used-percent>70</used-percent>
      <mounted-on>/.mount/var</mounted-on>
    </filesystem>
  </system-storage-information>
</rpc-reply>`
	st, err := ParseStorageXML(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseStorageXML() error = %v", err)
	}
	if st.Mount != "/.mount/var" {
		t.Errorf("mount = %q, want the /var filesystem preferred", st.Mount)
	}
	if st.UtilPct != 70 || st.TotalMB != 10240 {
		t.Errorf("storage = %+v", st)
	}
}

func TestParseStorageTextLargestFallback(t *testing.T) {
	out := `Filesystem      Size  Used  Avail  Capacity  Mounted on
/dev/ada0s1a    2.0G  800M   1.2G       40%  /
/dev/ada1s1a    40G    10G    30G       25%  /data`
	st, err := ParseStorageText(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseStorageText() error = %v", err)
	}
	if st.UtilPct != 25 {
		t.Errorf("UtilPct = %d, want the largest filesystem's 25", st.UtilPct)
	}
	if st.TotalMB != 40960 {
		t.Errorf("TotalMB = %d, want 40960", st.TotalMB)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		model   string
		version string
		osType  string
	}{
		{
			name: "classic junos",
			out: `Hostname: P-D1-JKT-01
Model: mx960
Junos: 21.4R3-S4.9
JUNOS OS Kernel 64-bit  [20230206.f3c5b19]`,
			model:   "MX960",
			version: "21.4R3-S4.9",
			osType:  "JUNOS",
		},
		{
			name: "evolved",
			out: `Hostname: P-D5-SBY-02
Model: ptx10008
Junos: 22.2R2.14-EVO
JUNOS-EVO OS 64-bit`,
			model:   "PTX10008",
			version: "22.2R2.14-EVO",
			osType:  "Junos EVO",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseVersion(model.RawCapture{Output: tt.out})
			if err != nil {
				t.Fatalf("ParseVersion() error = %v", err)
			}
			if info.Model != tt.model || info.Version != tt.version || info.OSType != tt.osType {
				t.Errorf("got %+v, want %s/%s/%s", info, tt.model, tt.version, tt.osType)
			}
		})
	}
}

func TestParseLoopback(t *testing.T) {
	xmlOut := `<rpc-reply><interface-information><logical-interface>
  <name>lo0.0</name>
  <address-family><ifa-local>10.255.0.1</ifa-local></address-family>
</logical-interface></interface-information></rpc-reply>`
	if got := ParseLoopback(model.RawCapture{Output: xmlOut}); got != "10.255.0.1" {
		t.Errorf("xml loopback = %q, want 10.255.0.1", got)
	}

	textOut := `lo0.0  up  up  inet  192.168.255.1  --> 0/0`
	if got := ParseLoopback(model.RawCapture{Output: textOut}); got != "192.168.255.1" {
		t.Errorf("text loopback = %q, want 192.168.255.1", got)
	}

	if got := ParseLoopback(model.RawCapture{Output: "lo0.0 up up"}); got != "-" {
		t.Errorf("unnumbered loopback = %q, want -", got)
	}
}

func TestParseUptime(t *testing.T) {
	out := `Current time: 2024-03-01 14:22:01 WIB
Time Source:  NTP CLOCK
System booted: 2023-11-10 02:11:09 WIB (16w1d 12:10 ago)`
	info, err := ParseUptime(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseUptime() error = %v", err)
	}
	if info.CurrentTime != "2024-03-01 14:22:01" || info.ZoneToken != "WIB" {
		t.Errorf("got %+v", info)
	}

	if _, err := ParseUptime(model.RawCapture{Output: "no clock here"}); err == nil {
		t.Fatal("want error for missing Current time line")
	}
}
