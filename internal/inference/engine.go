package inference

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fpcollect/fpcollect/internal/parser"
)

// Unknown is the value used when no rule resolves a field. Enrichment
// never overwrites an already-resolved value with it.
const Unknown = "Unknown"

// Engine answers classification questions from the catalog tables. It
// is stateless beyond the catalog and safe for reuse across devices.
type Engine struct {
	catalog *Catalog
}

func NewEngine(c *Catalog) *Engine {
	return &Engine{catalog: c}
}

var fpcNameRE = regexp.MustCompile(`(?i)\bFPC\s*(\d+)\b`)

// BuildFPCModelMap maps FPC slot numbers to line-card model names from
// the chassis hardware inventory.
func (e *Engine) BuildFPCModelMap(items []parser.HardwareItem) map[int]string {
	out := make(map[int]string)
	for _, it := range items {
		m := fpcNameRE.FindStringSubmatch(it.Slot)
		if m == nil {
			m = fpcNameRE.FindStringSubmatch(it.Component)
		}
		if m == nil {
			continue
		}
		slot, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		name := strings.TrimSpace(it.Model)
		if name == "" {
			name = strings.TrimSpace(it.PartNumber)
		}
		if name == "" {
			continue
		}
		if _, exists := out[slot]; !exists {
			out[slot] = name
		}
	}
	return out
}

// ModuleType resolves the line-card model carrying an interface.
// Resolution order: FPC slot map, optics description, bundle marker for
// ae interfaces. Passing an already-resolved current value returns it
// unchanged so repeated enrichment is a no-op.
func (e *Engine) ModuleType(iface, current string, fpcModels map[int]string, opticsDesc string) string {
	if current != "" && current != Unknown {
		return current
	}
	if slot := parser.FPCSlot(iface); slot >= 0 {
		if model, ok := fpcModels[slot]; ok {
			return model
		}
	}
	if d := strings.TrimSpace(opticsDesc); d != "" {
		return d
	}
	if strings.HasPrefix(iface, "ae") {
		return "Aggregated Ethernet Bundle"
	}
	return Unknown
}

// SFPType classifies the transceiver from its optics description, most
// specific (longest) catalog match first, falling back to a generic
// label keyed by the interface prefix.
func (e *Engine) SFPType(iface, current, opticsDesc string) string {
	if current != "" && current != Unknown {
		return current
	}
	if opticsDesc != "" {
		upper := strings.ToUpper(opticsDesc)
		best := -1
		bestLen := 0
		for i, rule := range e.catalog.SFPRules {
			m := strings.ToUpper(rule.Match)
			if strings.Contains(upper, m) && len(m) > bestLen {
				best, bestLen = i, len(m)
			}
		}
		if best >= 0 {
			return e.catalog.SFPRules[best].Type
		}
	}
	for prefix, label := range e.catalog.PrefixSFP {
		if strings.HasPrefix(iface, prefix+"-") {
			return label
		}
	}
	return Unknown
}

// Platform identifies the chassis model. Chassis inventory remarks win,
// then the Model line of show version, then hostname tags.
func (e *Engine) Platform(items []parser.HardwareItem, versionModel, hostname string) string {
	for _, it := range items {
		if !strings.EqualFold(strings.TrimSpace(it.Component), "Chassis") {
			continue
		}
		if p := e.matchPlatform(it.Model + " " + it.PartNumber); p != "" {
			return p
		}
	}
	if versionModel != "" {
		if p := e.matchPlatform(versionModel); p != "" {
			return p
		}
		return strings.ToUpper(versionModel)
	}
	if p := e.matchPlatform(hostname); p != "" {
		return p
	}
	return Unknown
}

func (e *Engine) matchPlatform(s string) string {
	low := strings.ToLower(s)
	for _, rule := range e.catalog.Platforms {
		for _, tag := range rule.Tags {
			if strings.Contains(low, strings.ToLower(tag)) {
				return rule.Name
			}
		}
	}
	return ""
}

// Zone resolves a clock token like "WIB" or "+0800" to a zone name and
// location. Unrecognized tokens come back verbatim with a nil location
// so callers can still report the device's own label.
func (e *Engine) Zone(token string) (string, *time.Location) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return "", nil
	}
	for _, z := range e.catalog.Zones {
		if strings.EqualFold(z.Token, tok) {
			return z.Token, e.zoneLocation(z)
		}
	}
	if strings.EqualFold(tok, "UTC") || strings.EqualFold(tok, "GMT") {
		return "UTC", time.UTC
	}
	if loc := offsetLocation(tok); loc != nil {
		// Numeric offsets map back to a named zone when one exists.
		_, secs := time.Now().In(loc).Zone()
		for _, z := range e.catalog.Zones {
			if z.OffsetHours*3600 == secs {
				return z.Token, e.zoneLocation(z)
			}
		}
		return tok, loc
	}
	return tok, nil
}

func (e *Engine) zoneLocation(z ZoneRule) *time.Location {
	if z.Location != "" {
		if loc, err := time.LoadLocation(z.Location); err == nil {
			return loc
		}
	}
	return time.FixedZone(z.Token, z.OffsetHours*3600)
}

var offsetRE = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

func offsetLocation(tok string) *time.Location {
	m := offsetRE.FindStringSubmatch(tok)
	if m == nil {
		return nil
	}
	h, _ := strconv.Atoi(m[2])
	min, _ := strconv.Atoi(m[3])
	secs := h*3600 + min*60
	if m[1] == "-" {
		secs = -secs
	}
	return time.FixedZone(tok, secs)
}
