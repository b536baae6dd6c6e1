package parser

import (
	"encoding/xml"
	"strings"

	"github.com/fpcollect/fpcollect/internal/model"
)

type xmlOpticsInterface struct {
	Name    string        `xml:"name"`
	RawDiag xmlOpticsDiag `xml:"optics-diagnostics"`
}

type xmlOpticsDiag struct {
	ModuleType  string `xml:"module-type"`
	ModuleDesc  string `xml:"module-description"`
	VendorName  string `xml:"vendor-name"`
	ModelNumber string `xml:"model-number"`
	PartNumber  string `xml:"part-number"`
}

func (d xmlOpticsDiag) description() string {
	for _, s := range []string{d.ModuleType, d.ModuleDesc, d.VendorName, d.ModelNumber, d.PartNumber} {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return ""
}

// ParseOptics builds the interface -> transceiver description map from a
// `show interfaces diagnostics optics | display xml` capture. Each entry
// is keyed both by the full interface name and by its unit-stripped base.
func ParseOptics(c model.RawCapture) (map[string]string, error) {
	frag := extractRPCReply(c.Output)
	if frag == "" {
		return nil, newParseError(c.Command, "no XML payload in output")
	}
	if !strings.Contains(frag, "optics-diagnostics") {
		// A device without pluggables replies with an empty
		// interface-information document.
		if strings.Contains(frag, "interface-information") {
			return map[string]string{}, nil
		}
		return nil, newParseError(c.Command, "no optics-diagnostics element")
	}

	optics := make(map[string]string)
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
		var pi xmlOpticsInterface
		if err := dec.DecodeElement(&pi, &se); err != nil {
			continue
		}
		name := strings.TrimSpace(pi.Name)
		desc := pi.RawDiag.description()
		if name == "" || desc == "" {
			continue
		}
		optics[name] = desc
		if base, _, found := strings.Cut(name, "."); found {
			optics[base] = desc
		}
	}
	return optics, nil
}
