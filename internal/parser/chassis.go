package parser

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fpcollect/fpcollect/internal/model"
)

// HardwareItem is one chassis component from `show chassis hardware
// detail`. Missing optional columns stay empty rather than failing the
// record.
type HardwareItem struct {
	Component    string
	Slot         string
	PartNumber   string
	SerialNumber string
	Model        string
	Version      string
	CLEI         string
	State        string
	TemperatureC int // 0 when not reported
}

// Remarks renders the auxiliary fields the way the inventory sheet shows
// them.
func (h HardwareItem) Remarks() string {
	var parts []string
	if h.CLEI != "" {
		parts = append(parts, "CLEI: "+h.CLEI)
	}
	if h.State != "" {
		parts = append(parts, "State: "+h.State)
	}
	if h.TemperatureC > 0 {
		parts = append(parts, fmt.Sprintf("Temp: %d C", h.TemperatureC))
	}
	return strings.Join(parts, ", ")
}

type xmlChassis struct {
	Name        string             `xml:"name"`
	Serial      string             `xml:"serial-number"`
	Description string             `xml:"description"`
	Modules     []xmlChassisModule `xml:"chassis-module"`
}

type xmlChassisModule struct {
	Name        string             `xml:"name"`
	PartNumber  string             `xml:"part-number"`
	Serial      string             `xml:"serial-number"`
	Description string             `xml:"description"`
	ModelNumber string             `xml:"model-number"`
	Version     string             `xml:"version"`
	CLEI        string             `xml:"clei-code"`
	Subs        []xmlChassisModule `xml:"chassis-sub-module"`
}

var tempNumRE = regexp.MustCompile(`\d+`)

// ParseHardware extracts the hardware inventory from a `show chassis
// hardware detail | display xml` capture. Sub-modules are flattened into
// the same list.
func ParseHardware(c model.RawCapture) ([]HardwareItem, error) {
	frag := extractRPCReply(c.Output)
	if frag == "" {
		return nil, newParseError(c.Command, "no XML payload in output")
	}
	if !strings.Contains(frag, "chassis-module") && !strings.Contains(frag, "<chassis") {
		return nil, newParseError(c.Command, "no chassis-inventory element")
	}

	var items []HardwareItem
	dec := xml.NewDecoder(strings.NewReader(frag))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "chassis":
			var ch xmlChassis
			if err := dec.DecodeElement(&ch, &se); err != nil {
				continue
			}
			items = append(items, HardwareItem{
				Component:    "Chassis",
				Slot:         strings.TrimSpace(ch.Name),
				SerialNumber: strings.TrimSpace(ch.Serial),
				Model:        strings.TrimSpace(ch.Description),
			})
			for _, mod := range ch.Modules {
				items = append(items, moduleItems(mod)...)
			}
		case "chassis-module":
			var mod xmlChassisModule
			if err := dec.DecodeElement(&mod, &se); err != nil {
				continue
			}
			items = append(items, moduleItems(mod)...)
		case "fpc":
			items = appendFPC(items, dec, &se)
		}
	}
	if len(items) == 0 {
		return nil, newParseError(c.Command, "chassis inventory contained no components")
	}
	return items, nil
}

func moduleItems(mod xmlChassisModule) []HardwareItem {
	name := strings.TrimSpace(mod.Name)
	component := "Module"
	if name != "" {
		component = strings.Fields(name)[0]
	}
	model := strings.TrimSpace(mod.Description)
	if model == "" {
		model = strings.TrimSpace(mod.ModelNumber)
	}
	items := []HardwareItem{{
		Component:    component,
		Slot:         name,
		PartNumber:   strings.TrimSpace(mod.PartNumber),
		SerialNumber: strings.TrimSpace(mod.Serial),
		Model:        model,
		Version:      strings.TrimSpace(mod.Version),
		CLEI:         strings.TrimSpace(mod.CLEI),
	}}
	for _, sub := range mod.Subs {
		items = append(items, moduleItems(sub)...)
	}
	return items
}

type xmlFPC struct {
	Slot        string `xml:"slot"`
	State       string `xml:"state"`
	Temperature string `xml:"temperature"`
	PartNumber  string `xml:"part-number"`
	Serial      string `xml:"serial-number"`
	Description string `xml:"description"`
	ModelNumber string `xml:"model-number"`
	Version     string `xml:"version"`
}

// appendFPC decodes an <fpc> element from `show chassis fpc`-style
// sections embedded in the detail output.
func appendFPC(items []HardwareItem, dec *xml.Decoder, se *xml.StartElement) []HardwareItem {
	var fpc xmlFPC
	if err := dec.DecodeElement(&fpc, se); err != nil {
		return items
	}
	slot := strings.TrimSpace(fpc.Slot)
	slotName := "FPC"
	if slot != "" {
		slotName = "FPC " + slot
	}
	model := strings.TrimSpace(fpc.Description)
	if model == "" {
		model = strings.TrimSpace(fpc.ModelNumber)
	}
	state := strings.TrimSpace(fpc.State)
	if state == "" {
		state = "Online"
	}
	temp := 0
	if m := tempNumRE.FindString(fpc.Temperature); m != "" {
		temp, _ = strconv.Atoi(m)
	}
	return append(items, HardwareItem{
		Component:    "FPC",
		Slot:         slotName,
		PartNumber:   strings.TrimSpace(fpc.PartNumber),
		SerialNumber: strings.TrimSpace(fpc.Serial),
		Model:        model,
		Version:      strings.TrimSpace(fpc.Version),
		State:        state,
		TemperatureC: temp,
	})
}
