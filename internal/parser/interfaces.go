// Package parser converts raw command captures into typed record sets.
// Every parse function is a pure function of the capture text: identical
// input yields identical output, and an unrecognized format yields a
// ParseError instead of a guess.
package parser

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fpcollect/fpcollect/internal/model"
)

// Interface is one physical interface row from `show interfaces extensive`.
type Interface struct {
	Name        string
	Description string
	Speed       string
	InputBps    int64
	OutputBps   int64
	LastFlapped string
	FlapAge     *time.Duration
}

// PeakBps returns the larger of the input and output rates.
func (i Interface) PeakBps() int64 {
	if i.InputBps > i.OutputBps {
		return i.InputBps
	}
	return i.OutputBps
}

type xmlFlapped struct {
	Text    string `xml:",chardata"`
	Seconds string `xml:"seconds,attr"`
}

type xmlTrafficStats struct {
	InputBps  string `xml:"input-bps"`
	OutputBps string `xml:"output-bps"`
}

type xmlPhysicalInterface struct {
	Name        string          `xml:"name"`
	Description string          `xml:"description"`
	Speed       string          `xml:"speed"`
	Flapped     xmlFlapped      `xml:"interface-flapped"`
	Traffic     xmlTrafficStats `xml:"traffic-statistics"`
}

// internalPrefixes are chassis-internal pseudo interfaces, never reported.
var internalPrefixes = []string{"lc-", "pfe-", "pfh-"}

// ParseInterfaces extracts interface rows from a `show interfaces
// extensive | display xml` capture. Internal pseudo interfaces are
// dropped; only Ethernet and aggregated-Ethernet families are returned.
func ParseInterfaces(c model.RawCapture) ([]Interface, error) {
	frag := extractRPCReply(c.Output)
	if frag == "" {
		return nil, newParseError(c.Command, "no XML payload in output")
	}
	if !strings.Contains(frag, "<physical-interface") && !strings.Contains(frag, "<interface-information") {
		return nil, newParseError(c.Command, "no interface-information element")
	}

	var out []Interface
	dec := xml.NewDecoder(strings.NewReader(frag))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "physical-interface" {
			continue
		}
		var pi xmlPhysicalInterface
		if err := dec.DecodeElement(&pi, &se); err != nil {
			continue
		}
		name := strings.TrimSpace(pi.Name)
		if name == "" || !reportable(name) {
			continue
		}
		iface := Interface{
			Name:        name,
			Description: strings.TrimSpace(pi.Description),
			Speed:       strings.TrimSpace(pi.Speed),
			InputBps:    parseInt64(pi.Traffic.InputBps),
			OutputBps:   parseInt64(pi.Traffic.OutputBps),
			LastFlapped: strings.TrimSpace(pi.Flapped.Text),
		}
		iface.FlapAge = flapAge(pi.Flapped)
		out = append(out, iface)
	}
	return out, nil
}

func reportable(name string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	for _, p := range []string{"ae", "et-", "xe-", "ge-"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// CapacityFromSpeed normalizes a device speed string into a display form
// and a bit rate. Unknown speeds yield bps 0, flagged capacity-unknown by
// the aggregation layer.
func CapacityFromSpeed(speed string) (string, int64) {
	up := strings.ToUpper(speed)
	switch {
	case strings.Contains(up, "100G"):
		return "100Gbps", 100_000_000_000
	case strings.Contains(up, "40G"):
		return "40Gbps", 40_000_000_000
	case strings.Contains(up, "10G"):
		return "10Gbps", 10_000_000_000
	case strings.Contains(up, "1G"), strings.Contains(up, "1000M"):
		return "1Gbps", 1_000_000_000
	}
	return speed, 0
}

// FPCSlot extracts the FPC slot from an interface name like "xe-2/0/1".
// Returns -1 when the name carries no slot.
var fpcSlotRE = regexp.MustCompile(`^(?:et|xe|ge)-(\d+)/`)

func FPCSlot(iface string) int {
	m := fpcSlotRE.FindStringSubmatch(iface)
	if m == nil {
		return -1
	}
	slot, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return slot
}

var agoRE = regexp.MustCompile(`\(([^)]+?)\s+ago\)`)
var weeksDaysRE = regexp.MustCompile(`(?:(\d+)w)?(?:(\d+)d)?\s*(\d{1,2}):(\d{2})(?::(\d{2}))?`)

// flapAge derives the time since the last flap, preferring the precise
// junos:seconds attribute over the human "(3w2d 04:05 ago)" rendering.
func flapAge(f xmlFlapped) *time.Duration {
	if s := strings.TrimSpace(f.Seconds); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			d := time.Duration(secs) * time.Second
			return &d
		}
	}
	m := agoRE.FindStringSubmatch(f.Text)
	if m == nil {
		return nil
	}
	t := weeksDaysRE.FindStringSubmatch(strings.TrimSpace(m[1]))
	if t == nil {
		return nil
	}
	weeks := atoiDefault(t[1], 0)
	days := atoiDefault(t[2], 0)
	hours := atoiDefault(t[3], 0)
	mins := atoiDefault(t[4], 0)
	secs := atoiDefault(t[5], 0)
	d := time.Duration(weeks)*7*24*time.Hour +
		time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second
	return &d
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
