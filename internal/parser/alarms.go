package parser

import (
	"encoding/xml"
	"strings"

	"github.com/fpcollect/fpcollect/internal/model"
)

// Alarm is one active chassis alarm.
type Alarm struct {
	Time        string
	Class       string
	Type        string
	Description string
}

type xmlAlarmDetail struct {
	Time      string `xml:"alarm-time"`
	Class     string `xml:"alarm-class"`
	Type      string `xml:"alarm-type"`
	ShortDesc string `xml:"alarm-short-description"`
	Desc      string `xml:"alarm-description"`
}

// ParseAlarms extracts active alarms from a `show chassis alarms | display
// xml` capture. A clean "no alarms currently active" reply yields an empty
// slice, not an error.
func ParseAlarms(c model.RawCapture) ([]Alarm, error) {
	if strings.Contains(strings.ToLower(c.Output), "no alarms currently active") {
		return nil, nil
	}
	frag := extractRPCReply(c.Output)
	if frag == "" {
		return nil, newParseError(c.Command, "no XML payload in output")
	}
	if !strings.Contains(frag, "alarm") {
		return nil, newParseError(c.Command, "no alarm-information element")
	}

	var alarms []Alarm
	dec := xml.NewDecoder(strings.NewReader(frag))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "alarm-detail" {
			continue
		}
		var det xmlAlarmDetail
		if err := dec.DecodeElement(&det, &se); err != nil {
			continue
		}
		desc := strings.TrimSpace(det.ShortDesc)
		if desc == "" {
			desc = strings.TrimSpace(det.Desc)
		}
		a := Alarm{
			Time:        strings.TrimSpace(det.Time),
			Class:       strings.TrimSpace(det.Class),
			Type:        strings.TrimSpace(det.Type),
			Description: desc,
		}
		if a.Time == "" && a.Class == "" && a.Type == "" && a.Description == "" {
			continue
		}
		alarms = append(alarms, a)
	}
	return alarms, nil
}
