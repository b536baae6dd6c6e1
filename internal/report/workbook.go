// Package report renders a completed Dataset as a multi-sheet Excel
// workbook: dashboard first, then the detail sheets the field teams
// work from.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fpcollect/fpcollect/internal/dataset"
	"github.com/fpcollect/fpcollect/internal/model"
)

const (
	sheetDashboard = "Dashboard Summary"
	sheetFPC       = "Utilisasi FPC"
	sheetPorts     = "Utilisasi Port"
	sheetAlarms    = "Alarm Status"
	sheetInventory = "Hardware Inventory"
	sheetSystem    = "System Performance"
)

// Utilization bands for the status column coloring.
const (
	bandWarn = 60.0
	bandCrit = 80.0
)

type Writer struct {
	outDir string
	logger *slog.Logger
}

func NewWriter(outDir string, logger *slog.Logger) *Writer {
	return &Writer{
		outDir: outDir,
		logger: logger.With("component", "report"),
	}
}

// Write renders the dataset and returns the workbook path.
func (w *Writer) Write(ds *model.Dataset) (string, error) {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return "", fmt.Errorf("building styles: %w", err)
	}

	f.SetSheetName("Sheet1", sheetDashboard)
	for _, name := range []string{sheetFPC, sheetPorts, sheetAlarms, sheetInventory, sheetSystem} {
		if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	w.writeDashboard(f, styles, ds)
	w.writeFPC(f, styles, ds)
	w.writePorts(f, styles, ds)
	w.writeAlarms(f, styles, ds)
	w.writeInventory(f, styles, ds)
	w.writeSystem(f, styles, ds)

	name := fmt.Sprintf("fpc_report_%s.xlsx", time.Now().Format("20060102_150405"))
	path := filepath.Join(w.outDir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	w.logger.Info("workbook written", "path", path, "sheets", 6)
	return path, nil
}

type styleSet struct {
	header int
	title  int
	ok     int
	warn   int
	crit   int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return s, err
	}
	s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return s, err
	}
	s.ok, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	})
	if err != nil {
		return s, err
	}
	s.warn, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFEB9C"}},
	})
	if err != nil {
		return s, err
	}
	s.crit, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	return s, err
}

func (s styleSet) utilStyle(pct float64) int {
	switch {
	case pct >= bandCrit:
		return s.crit
	case pct >= bandWarn:
		return s.warn
	}
	return s.ok
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetSheetRow(sheet, cell, &values)
}

func headerRow(f *excelize.File, sheet string, style int, row int, titles []interface{}) {
	setRow(f, sheet, row, titles)
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	_ = f.SetCellStyle(sheet, first, last, style)
}

func (w *Writer) writeDashboard(f *excelize.File, st styleSet, ds *model.Dataset) {
	sum := ds.Summary

	_ = f.SetCellValue(sheetDashboard, "A1", "Network Telemetry Collection Report")
	_ = f.SetCellStyle(sheetDashboard, "A1", "A1", st.title)
	_ = f.SetCellValue(sheetDashboard, "A2", "Generated: "+ds.FinishedAt.Format("2006-01-02 15:04:05"))
	_ = f.SetCellValue(sheetDashboard, "A3", "Run ID: "+ds.RunID.String())

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total Devices", sum.TotalNodes},
		{"Devices Collected", sum.EnrichedNodes},
		{"Active Interfaces", sum.ActiveInterfaces},
		{"Hardware Components", sum.HardwareComponents},
		{"Active Alarms", sum.ActiveAlarms},
		{"Ports Alerting", sum.AlertCount},
	}
	base := 5
	headerRow(f, sheetDashboard, st.header, base, rows[0])
	for i, r := range rows[1:] {
		setRow(f, sheetDashboard, base+1+i, r)
	}

	top := base + len(rows) + 2
	_ = f.SetCellValue(sheetDashboard, fmt.Sprintf("A%d", top), "Top Utilization")
	headerRow(f, sheetDashboard, st.header, top+1,
		[]interface{}{"Node", "Interface", "Utilization %", "Capacity"})
	for i, p := range sum.TopUtilization {
		row := top + 2 + i
		setRow(f, sheetDashboard, row, []interface{}{
			p.Node, p.Interface, round1(p.Utilization), p.Capacity,
		})
		cell := fmt.Sprintf("C%d", row)
		_ = f.SetCellStyle(sheetDashboard, cell, cell, st.utilStyle(p.Utilization))
	}

	flapBase := top + 3 + len(sum.TopUtilization)
	_ = f.SetCellValue(sheetDashboard, fmt.Sprintf("A%d", flapBase), "Flap Status")
	headerRow(f, sheetDashboard, st.header, flapBase+1, []interface{}{"Bucket", "Ports"})
	for i, bucket := range []string{dataset.FlapCritical, dataset.FlapWarning, dataset.FlapInfo, dataset.FlapStable} {
		setRow(f, sheetDashboard, flapBase+2+i, []interface{}{bucket, sum.FlapCounts[bucket]})
	}

	statusBase := flapBase + 7
	_ = f.SetCellValue(sheetDashboard, fmt.Sprintf("A%d", statusBase), "Device Status")
	headerRow(f, sheetDashboard, st.header, statusBase+1,
		[]interface{}{"Node", "State", "Elapsed", "Error"})
	for i, s := range ds.Statuses {
		setRow(f, sheetDashboard, statusBase+2+i, []interface{}{
			s.Node, string(s.State), s.Elapsed.Round(time.Second).String(), s.Error,
		})
	}

	_ = f.SetColWidth(sheetDashboard, "A", "A", 32)
	_ = f.SetColWidth(sheetDashboard, "B", "D", 22)
}

// writeFPC aggregates port records per node and FPC module.
func (w *Writer) writeFPC(f *excelize.File, st styleSet, ds *model.Dataset) {
	headerRow(f, sheetFPC, st.header, 1, []interface{}{
		"Divre", "Node", "Module Type", "Ports", "Ports Used", "Peak Utilization %",
	})

	type key struct{ node, module string }
	type agg struct {
		divre    string
		ports    int
		used     int
		peakUtil float64
	}
	groups := make(map[key]*agg)
	var order []key
	for _, p := range ds.Ports {
		k := key{p.Node, p.ModuleType}
		g, ok := groups[k]
		if !ok {
			g = &agg{divre: p.Divre}
			groups[k] = g
			order = append(order, k)
		}
		g.ports++
		if p.Status == "USED" {
			g.used++
		}
		if p.Utilization > g.peakUtil {
			g.peakUtil = p.Utilization
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].node != order[j].node {
			return order[i].node < order[j].node
		}
		return order[i].module < order[j].module
	})

	for i, k := range order {
		g := groups[k]
		row := 2 + i
		setRow(f, sheetFPC, row, []interface{}{
			g.divre, k.node, k.module, g.ports, g.used, round1(g.peakUtil),
		})
		cell := fmt.Sprintf("F%d", row)
		_ = f.SetCellStyle(sheetFPC, cell, cell, st.utilStyle(g.peakUtil))
	}
	footer(f, sheetFPC, 3+len(order), fmt.Sprintf("Total: %d module groups", len(order)))
	_ = f.SetColWidth(sheetFPC, "A", "F", 24)
}

func (w *Writer) writePorts(f *excelize.File, st styleSet, ds *model.Dataset) {
	headerRow(f, sheetPorts, st.header, 1, []interface{}{
		"Divre", "Node", "Interface", "Description", "Module Type", "SFP Type",
		"Capacity", "Traffic (GB)", "Utilization %", "Status", "Flap Status",
		"Last Flapped", "Alert", "Collected At",
	})

	for i, p := range ds.Ports {
		row := 2 + i
		capacity := p.Capacity
		if p.CapacityUnknown {
			capacity = "Unknown"
		}
		alert := ""
		if p.Alert {
			alert = "ALERT"
		}
		setRow(f, sheetPorts, row, []interface{}{
			p.Divre, p.Node, p.Interface, p.Description, p.ModuleType, p.SFPType,
			capacity, round2(p.TrafficGB), round1(p.Utilization), p.Status,
			p.FlapAlert, p.LastFlapped, alert, p.CollectedAt.String(),
		})
		cell := fmt.Sprintf("I%d", row)
		_ = f.SetCellStyle(sheetPorts, cell, cell, st.utilStyle(p.Utilization))
	}
	alerting := 0
	for _, p := range ds.Ports {
		if p.Alert {
			alerting++
		}
	}
	footer(f, sheetPorts, 3+len(ds.Ports), fmt.Sprintf("Total: %d ports, %d alerting", len(ds.Ports), alerting))
	_ = f.SetColWidth(sheetPorts, "A", "N", 20)
}

func (w *Writer) writeAlarms(f *excelize.File, st styleSet, ds *model.Dataset) {
	headerRow(f, sheetAlarms, st.header, 1, []interface{}{
		"Divre", "Node", "Alarm Time", "Class", "Severity", "Description", "Status",
	})
	for i, a := range ds.Alarms {
		row := 2 + i
		setRow(f, sheetAlarms, row, []interface{}{
			a.Divre, a.Node, a.RawTime, a.Class, a.Severity, a.Description, a.Status,
		})
		if a.Severity == "CRITICAL" {
			cell := fmt.Sprintf("E%d", row)
			_ = f.SetCellStyle(sheetAlarms, cell, cell, st.crit)
		}
	}
	if len(ds.Alarms) == 0 {
		setRow(f, sheetAlarms, 2, []interface{}{"", "", "", "", "", "No active alarms", ""})
	}
	footer(f, sheetAlarms, 4+len(ds.Alarms), fmt.Sprintf("Total: %d active alarms", len(ds.Alarms)))
	_ = f.SetColWidth(sheetAlarms, "A", "G", 26)
}

func (w *Writer) writeInventory(f *excelize.File, st styleSet, ds *model.Dataset) {
	headerRow(f, sheetInventory, st.header, 1, []interface{}{
		"Divre", "Node", "Component", "Slot", "Part Number", "Serial Number",
		"Model", "Version", "Status", "Remarks",
	})
	for i, inv := range ds.Inventory {
		setRow(f, sheetInventory, 2+i, []interface{}{
			inv.Divre, inv.Node, inv.Component, inv.Slot, inv.PartNumber,
			inv.SerialNumber, inv.Model, inv.Version, inv.Status, inv.Remarks,
		})
	}
	footer(f, sheetInventory, 3+len(ds.Inventory), fmt.Sprintf("Total: %d components", len(ds.Inventory)))
	_ = f.SetColWidth(sheetInventory, "A", "J", 22)
}

func (w *Writer) writeSystem(f *excelize.File, st styleSet, ds *model.Dataset) {
	headerRow(f, sheetSystem, st.header, 1, []interface{}{
		"Divre", "Node", "Platform", "Software", "Version", "Loopback",
		"CPU %", "Memory %", "Storage %", "Storage Used (MB)", "Storage Free (MB)",
		"Temperature (C)", "Collected At",
	})
	for i, h := range ds.Health {
		row := 2 + i
		setRow(f, sheetSystem, row, []interface{}{
			h.Divre, h.Node, h.Platform, h.SoftwareType, h.SoftwareVersion,
			h.Loopback, h.CPUUsedPct, h.MemoryUsedPct, h.StorageUtilPct,
			h.StorageUsedMB, h.StorageFreeMB, h.TemperatureC,
			h.CollectedAt.String(),
		})
		for col, pct := range map[string]int{"G": h.CPUUsedPct, "H": h.MemoryUsedPct, "I": h.StorageUtilPct} {
			cell := fmt.Sprintf("%s%d", col, row)
			_ = f.SetCellStyle(sheetSystem, cell, cell, st.utilStyle(float64(pct)))
		}
	}
	footer(f, sheetSystem, 3+len(ds.Health), fmt.Sprintf("Total: %d devices reporting", len(ds.Health)))
	_ = f.SetColWidth(sheetSystem, "A", "M", 20)
}

func footer(f *excelize.File, sheet string, row int, text string) {
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), text)
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
