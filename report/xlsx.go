// Package report renders analytics reports as Excel workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/leave-engine/leave"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetMonthly     = "Monthly"
	SheetDepartments = "Departments"
	SheetLeaveTypes  = "Leave Types"
)

var groupHeader = []any{"Key", "Requests", "Pending", "Approved", "Rejected", "Approval Rate (%)"}

// WriteWorkbook writes the report as an xlsx workbook with one sheet per
// section of the analytics dashboard.
func WriteWorkbook(w io.Writer, r leave.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetMonthly, SheetDepartments, SheetLeaveTypes} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Metric", "Value"},
		{"Total Requests", r.Counts.Total},
		{"Pending", r.Counts.Pending},
		{"Approved", r.Counts.Approved},
		{"Rejected", r.Counts.Rejected},
		{"Urgent Pending", r.Counts.UrgentPending},
		{"Approval Rate (%)", r.ApprovalRate.InexactFloat64()},
		{"Average Processing Time (h)", r.AverageProcessingHours.InexactFloat64()},
		{"Trend", string(r.Trend)},
	}
	if err := writeTable(f, SheetSummary, summary, bold); err != nil {
		return err
	}

	monthly := [][]any{{"Month", "Applied", "Approved", "Rejected"}}
	for _, b := range r.Monthly {
		monthly = append(monthly, []any{b.Month, b.Applied, b.Approved, b.Rejected})
	}
	if err := writeTable(f, SheetMonthly, monthly, bold); err != nil {
		return err
	}

	if err := writeTable(f, SheetDepartments, groupRows(r.Departments), bold); err != nil {
		return err
	}
	if err := writeTable(f, SheetLeaveTypes, groupRows(r.LeaveTypes), bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func groupRows(groups []leave.Group) [][]any {
	rows := [][]any{groupHeader}
	for _, g := range groups {
		rows = append(rows, []any{g.Key, g.Count, g.Pending, g.Approved, g.Rejected, g.ApprovalRate.InexactFloat64()})
	}
	return rows
}

// writeTable writes rows starting at A1 and bolds the first one.
func writeTable(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}
