package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pediclinic/internal/model"
	"pediclinic/internal/slots"
)

// Names resolves ids to display names. Missing entries fall back to the id.
type Names struct {
	Patients   map[string]string
	Therapists map[string]string
}

func (n Names) patient(id string) string {
	if name, ok := n.Patients[id]; ok && name != "" {
		return name
	}
	return id
}

func (n Names) therapist(id string) string {
	if name, ok := n.Therapists[id]; ok && name != "" {
		return name
	}
	return id
}

var weekdayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekFilename returns e.g. "schedule_2024-01-01.xlsx" for the week's Monday.
func WeekFilename(start time.Time) string {
	return fmt.Sprintf("schedule_%s.xlsx", slots.WeekStart(start).Format(slots.DateLayout))
}

// WriteWeek fills wb with a "Schedule" grid sheet (hours by weekday, booked/capacity
// and therapists per cell) and a "Sessions" list sheet.
func WriteWeek(wb *Workbook, week slots.WeekInfo, sessions []model.Session, names Names) error {
	if err := wb.AddSheet("Schedule"); err != nil {
		return err
	}

	header := []string{"Time"}
	for i, d := range week.Days {
		header = append(header, fmt.Sprintf("%s %s", weekdayNames[i%7], d.Date))
	}
	if err := wb.WriteHeader(header); err != nil {
		return err
	}

	if len(week.Days) > 0 {
		for row := range week.Days[0].Cells {
			line := []any{week.Days[0].Cells[row].Time}
			for _, d := range week.Days {
				line = append(line, cellText(d.Cells[row], week.Capacity, names))
			}
			if err := wb.WriteRow(line); err != nil {
				return err
			}
		}
	}
	_ = wb.SetColumnWidth("B", "H", 28)

	if err := wb.AddSheet("Sessions"); err != nil {
		return err
	}
	if err := wb.WriteHeader([]string{"Date", "Time", "Ends", "Patient", "Therapist", "Duration", "Report", "Session ID"}); err != nil {
		return err
	}
	for _, s := range sessions {
		if err := wb.WriteRow([]any{
			s.Date.Format(slots.DateLayout),
			s.Time,
			s.End(time.UTC).Format(slots.TimeLayout),
			names.patient(s.PatientID),
			names.therapist(s.TherapistID),
			s.DurationMinutes,
			string(s.ReportStatus),
			s.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func cellText(c slots.CellInfo, capacity int, names Names) string {
	if c.Booked == 0 {
		return ""
	}
	therapists := make([]string, len(c.TherapistIDs))
	for i, id := range c.TherapistIDs {
		therapists[i] = names.therapist(id)
	}
	return fmt.Sprintf("%d/%d: %s", c.Booked, capacity, strings.Join(therapists, ", "))
}

// TableSource lists tables and their rows, as the database does for audits.
type TableSource interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]any, []string, error)
}

// WriteTables adds one sheet per table with every row.
func WriteTables(ctx context.Context, wb *Workbook, src TableSource) error {
	tables, err := src.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	for _, table := range tables {
		rows, columns, err := src.GetTableData(ctx, table)
		if err != nil {
			return fmt.Errorf("read table %s: %w", table, err)
		}
		if err := wb.AddSheet(table); err != nil {
			return err
		}
		if err := wb.WriteHeader(columns); err != nil {
			return err
		}
		for _, r := range rows {
			line := make([]any, len(columns))
			for i, col := range columns {
				if b, ok := r[col].([]byte); ok {
					line[i] = string(b)
					continue
				}
				line[i] = r[col]
			}
			if err := wb.WriteRow(line); err != nil {
				return err
			}
		}
	}
	return nil
}
