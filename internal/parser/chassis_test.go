package parser

import (
	"errors"
	"testing"

	"github.com/fpcollect/fpcollect/internal/model"
)

const hardwareXML = `<rpc-reply>
  <chassis-inventory>
    <chassis>
      <name>Chassis</name>
      <serial-number>JN12345</serial-number>
      <description>MX960</description>
      <chassis-module>
        <name>FPC 2</name>
        <part-number>750-12345</part-number>
        <serial-number>ABC123</serial-number>
        <description>MPC7E 3D MRATE</description>
        <clei-code>IPUCB10BRA</clei-code>
        <chassis-sub-module>
          <name>PIC 0</name>
          <part-number>BUILTIN</part-number>
          <description>10x10GE SFPP</description>
        </chassis-sub-module>
      </chassis-module>
      <chassis-module>
        <name>Routing Engine 0</name>
        <description>RE-S-X6-64G</description>
      </chassis-module>
    </chassis>
  </chassis-inventory>
</rpc-reply>`

func TestParseHardware(t *testing.T) {
	got, err := ParseHardware(model.RawCapture{Command: "show chassis hardware detail", Output: hardwareXML})
	if err != nil {
		t.Fatalf("ParseHardware() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d components, want 4 (chassis + FPC + sub-module + RE)", len(got))
	}

	ch := got[0]
	if ch.Component != "Chassis" || ch.Model != "MX960" || ch.SerialNumber != "JN12345" {
		t.Errorf("chassis = %+v", ch)
	}

	fpc := got[1]
	if fpc.Component != "FPC" || fpc.Slot != "FPC 2" {
		t.Errorf("fpc = %q/%q, want FPC / FPC 2", fpc.Component, fpc.Slot)
	}
	if fpc.Model != "MPC7E 3D MRATE" {
		t.Errorf("fpc model = %q", fpc.Model)
	}
	if fpc.CLEI != "IPUCB10BRA" {
		t.Errorf("fpc CLEI = %q", fpc.CLEI)
	}

	pic := got[2]
	if pic.Component != "PIC" || pic.Model != "10x10GE SFPP" {
		t.Errorf("sub-module = %+v, want flattened PIC", pic)
	}
}

func TestParseHardwareFPCElement(t *testing.T) {
	out := `<rpc-reply>
  <fpc-information>
    <fpc>
      <slot>0</slot>
      <state>Online</state>
      <temperature>41 degrees C / 105 degrees F</temperature>
      <description>LC1201</description>
    </fpc>
  </fpc-information>
</rpc-reply>`
	got, err := ParseHardware(model.RawCapture{Output: out})
	if err != nil {
		t.Fatalf("ParseHardware() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d components, want 1", len(got))
	}
	if got[0].Slot != "FPC 0" || got[0].Model != "LC1201" || got[0].TemperatureC != 41 {
		t.Errorf("fpc = %+v", got[0])
	}
}

func TestParseHardwareNoPayload(t *testing.T) {
	_, err := ParseHardware(model.RawCapture{Output: "command timed out"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestHardwareItemRemarks(t *testing.T) {
	h := HardwareItem{CLEI: "ABC", State: "Online", TemperatureC: 40}
	want := "CLEI: ABC, State: Online, Temp: 40 C"
	if got := h.Remarks(); got != want {
		t.Errorf("Remarks() = %q, want %q", got, want)
	}
	if got := (HardwareItem{}).Remarks(); got != "" {
		t.Errorf("empty Remarks() = %q, want empty", got)
	}
}
