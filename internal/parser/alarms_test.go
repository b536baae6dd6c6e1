package parser

import (
	"errors"
	"testing"

	"github.com/fpcollect/fpcollect/internal/model"
)

func TestParseAlarmsActive(t *testing.T) {
	out := `<rpc-reply>
  <alarm-information>
    <alarm-summary><active-alarm-count>2</active-alarm-count></alarm-summary>
    <alarm-detail>
      <alarm-time>2024-03-01 10:15:00 WIB</alarm-time>
      <alarm-class>Major</alarm-class>
      <alarm-type>Chassis</alarm-type>
      <alarm-short-description>PEM 1 Not OK</alarm-short-description>
      <alarm-description>PEM 1 Input Failure</alarm-description>
    </alarm-detail>
    <alarm-detail>
      <alarm-time>2024-03-01 09:00:00 WIB</alarm-time>
      <alarm-class>Minor</alarm-class>
      <alarm-type>Chassis</alarm-type>
      <alarm-description>Fan Tray 2 Failure</alarm-description>
    </alarm-detail>
  </alarm-information>
</rpc-reply>`
	got, err := ParseAlarms(model.RawCapture{Command: "show chassis alarms", Output: out})
	if err != nil {
		t.Fatalf("ParseAlarms() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d alarms, want 2", len(got))
	}
	if got[0].Description != "PEM 1 Not OK" {
		t.Errorf("description = %q, want the short description preferred", got[0].Description)
	}
	if got[1].Description != "Fan Tray 2 Failure" {
		t.Errorf("description = %q, want the long form fallback", got[1].Description)
	}
	if got[0].Class != "Major" || got[1].Class != "Minor" {
		t.Errorf("classes = %q/%q", got[0].Class, got[1].Class)
	}
}

func TestParseAlarmsNone(t *testing.T) {
	out := `<rpc-reply>
  <alarm-information>
    <alarm-summary><no-active-alarms/></alarm-summary>
  </alarm-information>
</rpc-reply>
No alarms currently active`
	got, err := ParseAlarms(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseAlarms() error = %v, want nil for a clean no-alarm reply", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d alarms, want 0", len(got))
	}
}

func TestParseAlarmsGarbage(t *testing.T) {
	_, err := ParseAlarms(model.RawCapture{Output: "%$#@ connection reset"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParseAlarmsBracketAfterPrompt(t *testing.T) {
	// The only '>' precedes the only '<'; must reject cleanly, not slice
	// past the bracket.
	out := "user@router> show chassis alarms\nerror: value <eof"
	_, err := ParseAlarms(model.RawCapture{Command: "show chassis alarms", Output: out})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}
