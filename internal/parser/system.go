package parser

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/fpcollect/fpcollect/internal/model"
)

// REStats carries what `show chassis routing-engine` states directly.
// Nil fields mean the output did not report that figure.
type REStats struct {
	CPUUsedPct    *int
	MemoryUsedPct *int
	TemperatureC  *int
}

var (
	idleRE      = regexp.MustCompile(`Idle\s+(\d+)`)
	memUtilRE   = regexp.MustCompile(`(?i)Memory\s+utilization\s+(\d+)\s*percent`)
	cpuTempRE   = regexp.MustCompile(`(?i)CPU\s+temperature`)
	tempLineRE  = regexp.MustCompile(`(?i)\bTemperature\b`)
	tempValueRE = regexp.MustCompile(`\b(\d{2,3})\b\s*(?:degrees\s*C|Celsius|C\b)?`)
)

// ParseRoutingEngine extracts CPU usage (100 - best idle figure), memory
// utilization and chassis temperature from routing-engine text output.
// Lines reporting "CPU temperature" are ignored: the sheet wants the
// chassis air temperature.
func ParseRoutingEngine(c model.RawCapture) (REStats, error) {
	var st REStats
	seen := false
	for _, line := range strings.Split(c.Output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := idleRE.FindStringSubmatch(line); m != nil {
			seen = true
			idle, _ := strconv.Atoi(m[1])
			used := 100 - idle
			if used < 0 {
				used = 0
			}
			if used > 100 {
				used = 100
			}
			// Multi-RE chassis: keep the busiest engine.
			if st.CPUUsedPct == nil || used > *st.CPUUsedPct {
				v := used
				st.CPUUsedPct = &v
			}
		}
		if m := memUtilRE.FindStringSubmatch(line); m != nil {
			seen = true
			if st.MemoryUsedPct == nil {
				v, _ := strconv.Atoi(m[1])
				st.MemoryUsedPct = &v
			}
		}
		if tempLineRE.MatchString(line) && !cpuTempRE.MatchString(line) {
			if m := tempValueRE.FindStringSubmatch(line); m != nil {
				val, _ := strconv.Atoi(m[1])
				if val >= 10 && val <= 120 {
					seen = true
					if st.TemperatureC == nil || val > *st.TemperatureC {
						v := val
						st.TemperatureC = &v
					}
				}
			}
		}
	}
	if !seen {
		return st, newParseError(c.Command, "no routing-engine statistics recognized")
	}
	return st, nil
}

var sysMemRE = regexp.MustCompile(`(?i)\b(Total|Reserved|Free|Cache|Inactive)\s+memory\s*:\s*(\d+)\s*Kbytes`)

// ParseSystemMemory computes memory utilization percent from `show system
// memory` when the routing-engine output omitted it.
func ParseSystemMemory(c model.RawCapture) (*int, error) {
	vals := map[string]float64{}
	for _, line := range strings.Split(c.Output, "\n") {
		if m := sysMemRE.FindStringSubmatch(line); m != nil {
			kb, _ := strconv.ParseFloat(m[2], 64)
			vals[strings.ToLower(m[1])] = kb / 1024.0
		}
	}
	total, ok := vals["total"]
	if !ok || total <= 0 {
		return nil, newParseError(c.Command, "no total memory figure")
	}
	totalRE := total + vals["reserved"]
	used := totalRE - vals["free"] - vals["cache"] - vals["inactive"]
	pct := int(used*100.0/totalRE + 0.5)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &pct, nil
}

// Storage is the selected filesystem's usage figures in megabytes.
type Storage struct {
	TotalMB int
	UsedMB  int
	FreeMB  int
	UtilPct int
	Mount   string
}

// preferredMounts are checked before falling back to the largest
// filesystem; /var is where Junos keeps logs and temp captures.
var preferredMounts = []*regexp.Regexp{
	regexp.MustCompile(`/(?:\.mount/)?var\b`),
	regexp.MustCompile(`/var\b`),
}

type xmlFilesystem struct {
	Name       string `xml:"filesystem-name"`
	Total      string `xml:"total-blocks"`
	Used       string `xml:"used-blocks"`
	Available  string `xml:"available-blocks"`
	UsedsPct   string `xml:"used-percent"`
	MountPoint string `xml:"mounted-on"`
}

// ParseStorageXML selects the best filesystem row from `show system
// storage | display xml`.
func ParseStorageXML(c model.RawCapture) (*Storage, error) {
	frag := extractRPCReply(c.Output)
	if frag == "" {
		return nil, newParseError(c.Command, "no XML payload in output")
	}
	if !strings.Contains(frag, "filesystem") {
		return nil, newParseError(c.Command, "no filesystem elements")
	}

	var entries []Storage
	dec := xml.NewDecoder(strings.NewReader(frag))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "filesystem" {
			continue
		}
		var fs xmlFilesystem
		if err := dec.DecodeElement(&fs, &se); err != nil {
			continue
		}
		mount := strings.TrimSpace(fs.MountPoint)
		if mount == "" {
			mount = strings.TrimSpace(fs.Name)
		}
		st := Storage{
			TotalMB: int(sizeToMB(fs.Total) + 0.5),
			UsedMB:  int(sizeToMB(fs.Used) + 0.5),
			FreeMB:  int(sizeToMB(fs.Available) + 0.5),
			Mount:   mount,
		}
		st.UtilPct = utilPct(fs.UsedsPct, st.UsedMB, st.TotalMB)
		entries = append(entries, st)
	}
	best := pickStorage(entries)
	if best == nil {
		return nil, newParseError(c.Command, "no usable filesystem rows")
	}
	return best, nil
}

var sizeTokRE = regexp.MustCompile(`(\d+(?:\.\d+)?[KMGT])`)
var numTokRE = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
var pctTokRE = regexp.MustCompile(`(\d+)%`)

// ParseStorageText is the df-style text fallback for devices whose XML
// storage output is unusable.
func ParseStorageText(c model.RawCapture) (*Storage, error) {
	var entries []Storage
	for _, raw := range strings.Split(c.Output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || (strings.Contains(line, "Filesystem") && strings.Contains(line, "Mounted on")) {
			continue
		}
		if !strings.Contains(line, "%") || !strings.Contains(line, "/") {
			continue
		}
		var total, used, free float64
		if toks := sizeTokRE.FindAllString(line, -1); len(toks) >= 3 {
			total, used, free = sizeToMB(toks[0]), sizeToMB(toks[1]), sizeToMB(toks[2])
		} else if nums := numTokRE.FindAllStringSubmatch(line, -1); len(nums) >= 3 {
			total, _ = strconv.ParseFloat(nums[0][1], 64)
			used, _ = strconv.ParseFloat(nums[1][1], 64)
			free, _ = strconv.ParseFloat(nums[2][1], 64)
		} else {
			continue
		}
		st := Storage{
			TotalMB: int(total + 0.5),
			UsedMB:  int(used + 0.5),
			FreeMB:  int(free + 0.5),
			Mount:   line,
		}
		if m := pctTokRE.FindStringSubmatch(line); m != nil {
			st.UtilPct, _ = strconv.Atoi(m[1])
		} else {
			st.UtilPct = utilPct("", st.UsedMB, st.TotalMB)
		}
		entries = append(entries, st)
	}
	best := pickStorage(entries)
	if best == nil {
		return nil, newParseError(c.Command, "no filesystem lines recognized")
	}
	return best, nil
}

// pickStorage prefers a /var mount, else the largest filesystem.
func pickStorage(entries []Storage) *Storage {
	var fallback *Storage
	for i := range entries {
		e := &entries[i]
		for _, pat := range preferredMounts {
			if pat.MatchString(e.Mount) {
				return e
			}
		}
		if fallback == nil || e.TotalMB > fallback.TotalMB {
			fallback = e
		}
	}
	return fallback
}

func utilPct(reported string, used, total int) int {
	if digits := regexp.MustCompile(`\d+`).FindString(reported); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			return n
		}
	}
	if total > 0 {
		return int(float64(used)*100.0/float64(total) + 0.5)
	}
	return 0
}

// sizeToMB converts "512M", "1.5G", "2097152" (KB-less plain MB) style
// tokens to megabytes.
func sizeToMB(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if m := regexp.MustCompile(`^(\d+(?:\.\d+)?)$`).FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v
	}
	m := regexp.MustCompile(`^(\d+(?:\.\d+)?)([KkMmGgTt])`).FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	switch strings.ToUpper(m[2]) {
	case "K":
		return v / 1024.0
	case "M":
		return v
	case "G":
		return v * 1024.0
	case "T":
		return v * 1024.0 * 1024.0
	}
	return 0
}

// VersionInfo is what `show version` states about the software.
type VersionInfo struct {
	Model   string
	Version string
	OSType  string // "JUNOS" or "Junos EVO"
}

var (
	modelLineRE   = regexp.MustCompile(`(?im)^\s*Model\s*:\s*([A-Za-z0-9\-]+)`)
	junosLineRE   = regexp.MustCompile(`(?im)^\s*Junos\s*:\s*(.+)$`)
	versionTokRE  = regexp.MustCompile(`\b(\d+\.\d+[A-Za-z0-9.\-]*R\d+(?:[A-Za-z0-9.\-]*)?)\b`)
	evoMarkerRE   = regexp.MustCompile(`(?i)EVOLVED|JUNOS-EVO|-EVO\b|JUNOS EVO|JUNOS OS EVO`)
	junosMarkerRE = regexp.MustCompile(`(?i)JUNOS`)
)

// ParseVersion extracts the platform model line, the raw Junos version
// token (e.g. "21.4R3-S1.6-EVO") and the OS flavor.
func ParseVersion(c model.RawCapture) (VersionInfo, error) {
	info := VersionInfo{}
	text := c.Output

	if m := modelLineRE.FindStringSubmatch(text); m != nil {
		info.Model = strings.ToUpper(m[1])
	}

	// Prefer the token on the "Junos:" line; fall back to anywhere.
	if m := junosLineRE.FindStringSubmatch(text); m != nil {
		if v := versionTokRE.FindString(m[1]); v != "" {
			info.Version = v
		}
	}
	if info.Version == "" {
		info.Version = versionTokRE.FindString(text)
	}

	switch {
	case evoMarkerRE.MatchString(text):
		info.OSType = "Junos EVO"
	case junosMarkerRE.MatchString(text):
		info.OSType = "JUNOS"
	}

	if info.Model == "" && info.Version == "" && info.OSType == "" {
		return info, newParseError(c.Command, "no version information recognized")
	}
	return info, nil
}

var (
	ifaLocalRE = regexp.MustCompile(`<ifa-local>\s*(\d{1,3}(?:\.\d{1,3}){3})\s*</ifa-local>`)
	inetTerseRE = regexp.MustCompile(`(?i)\binet\s+(\d{1,3}(?:\.\d{1,3}){3})\b`)
)

// ParseLoopback pulls the lo0.0 IPv4 address from either the XML or the
// terse text rendering. Returns "-" when the interface carries none.
func ParseLoopback(c model.RawCapture) string {
	if m := ifaLocalRE.FindStringSubmatch(c.Output); m != nil && isIPv4(m[1]) {
		return m[1]
	}
	if m := inetTerseRE.FindStringSubmatch(c.Output); m != nil && isIPv4(m[1]) {
		return m[1]
	}
	return "-"
}

func isIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// UptimeInfo is the device clock reading from `show system uptime`.
type UptimeInfo struct {
	CurrentTime string // "2024-03-01 11:22:33"
	ZoneToken   string // "WIB", "WITA", "WIT", "UTC", "+0700", ...
}

var currentTimeRE = regexp.MustCompile(`(?im)^\s*Current time:\s*(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})\s*(\S*)`)

// ParseUptime extracts the device current time and its zone or offset
// token. The token drives time-zone inference; it is reported verbatim.
func ParseUptime(c model.RawCapture) (UptimeInfo, error) {
	m := currentTimeRE.FindStringSubmatch(c.Output)
	if m == nil {
		return UptimeInfo{}, newParseError(c.Command, "no Current time line")
	}
	return UptimeInfo{CurrentTime: m[1], ZoneToken: strings.TrimSpace(m[2])}, nil
}
