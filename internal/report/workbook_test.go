package report

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fpcollect/fpcollect/internal/model"
)

func sampleDataset() *model.Dataset {
	when := model.ZonedTime{Time: time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), Zone: "WIB"}
	return &model.Dataset{
		RunID:      uuid.New(),
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Ports: []model.PortRecord{
			{
				Node: "JKT-P-01", Divre: "JKT", Interface: "et-0/0/1",
				ModuleType: "MPC7E", SFPType: "QSFP28 100GBASE-LR4",
				Capacity: "100Gbps", Utilization: 85.5, Status: "USED",
				FlapAlert: "Stable", Alert: true, CollectedAt: when,
			},
			{
				Node: "JKT-P-01", Divre: "JKT", Interface: "xe-1/0/0",
				ModuleType: "MPC7E", SFPType: "SFP+ Module",
				Capacity: "10Gbps", Utilization: 12.0, Status: "UNUSED",
				FlapAlert: "Stable", CollectedAt: when,
			},
		},
		Alarms: []model.AlarmRecord{
			{Node: "JKT-P-01", Divre: "JKT", RawTime: "2024-03-01 10:00:00 WIB", Class: "Major", Severity: "CRITICAL", Description: "PEM 1 Not OK", Status: "ACTIVE"},
		},
		Inventory: []model.InventoryRecord{
			{Node: "JKT-P-01", Divre: "JKT", Component: "Chassis", Model: "MX960"},
		},
		Health: []model.SystemHealthRecord{
			{Node: "JKT-P-01", Divre: "JKT", Platform: "MX960", SoftwareType: "JUNOS", SoftwareVersion: "21.4R3", Loopback: "10.255.0.1", CPUUsedPct: 12, MemoryUsedPct: 40, StorageUtilPct: 61, CollectedAt: when},
		},
		Statuses: []model.DeviceStatus{
			{Node: "JKT-P-01", State: model.StateDone, Elapsed: 90 * time.Second},
			{Node: "SBY-P-02", State: model.StateFailed, Error: "authentication rejected"},
		},
		Summary: model.Summary{
			TotalNodes: 2, EnrichedNodes: 1, ActiveInterfaces: 2,
			HardwareComponents: 1, ActiveAlarms: 1, AlertCount: 1,
			TopUtilization: []model.PortRecord{{Node: "JKT-P-01", Interface: "et-0/0/1", Utilization: 85.5, Capacity: "100Gbps"}},
			FlapCounts:     map[string]int{"Stable": 2},
			SeverityCounts: map[string]int{"CRITICAL": 1},
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	w := NewWriter(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	path, err := w.Write(sampleDataset())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	want := []string{sheetDashboard, sheetFPC, sheetPorts, sheetAlarms, sheetInventory, sheetSystem}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for _, name := range want {
		if idx, _ := f.GetSheetIndex(name); idx < 0 {
			t.Errorf("sheet %q missing", name)
		}
	}

	cell, err := f.GetCellValue(sheetPorts, "C2")
	if err != nil {
		t.Fatal(err)
	}
	if cell != "et-0/0/1" {
		t.Errorf("first port row interface = %q, want et-0/0/1", cell)
	}

	node, err := f.GetCellValue(sheetSystem, "B2")
	if err != nil {
		t.Fatal(err)
	}
	if node != "JKT-P-01" {
		t.Errorf("system sheet node = %q", node)
	}
}

func TestUtilStyleBands(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	st, err := newStyles(f)
	if err != nil {
		t.Fatal(err)
	}
	if st.utilStyle(10) != st.ok {
		t.Error("10% not in the ok band")
	}
	if st.utilStyle(60) != st.warn {
		t.Error("60% not in the warning band")
	}
	if st.utilStyle(80) != st.crit {
		t.Error("80% not in the critical band")
	}
}
