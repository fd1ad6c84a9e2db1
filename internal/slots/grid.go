package slots

import (
	"sort"
	"time"

	"pediclinic/internal/model"
)

// CellInfo is one (day, hour) cell of the weekly schedule view.
type CellInfo struct {
	Time         string   `json:"time"`
	Booked       int      `json:"booked"`
	Remaining    int      `json:"remaining"`
	Available    bool     `json:"available"`
	SessionIDs   []string `json:"session_ids,omitempty"`
	TherapistIDs []string `json:"therapist_ids,omitempty"`
}

// DayInfo lists the cells of one day in operating-hour order.
type DayInfo struct {
	Date  string     `json:"date"` // "2024-01-01"
	Cells []CellInfo `json:"cells"`
}

// WeekInfo is the Monday-first weekly schedule grid.
type WeekInfo struct {
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Capacity int       `json:"capacity"`
	Days     []DayInfo `json:"days"`
}

// WeekStart returns the Monday of the week containing date.
func WeekStart(date time.Time) time.Time {
	d := DateOnly(date)
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset = 6
	}
	return d.AddDate(0, 0, -offset)
}

// BuildWeek lays sessions out on the week that contains start. Sessions outside the
// week or at non-operating hours are ignored.
func BuildWeek(start time.Time, hours OperatingHours, capacity int, sessions []model.Session) WeekInfo {
	if capacity <= 0 {
		capacity = MaxSessionsPerSlot
	}
	monday := WeekStart(start)

	bySlot := make(map[string][]model.Session)
	for _, s := range sessions {
		key := New(s.Date, s.Time).Key()
		bySlot[key] = append(bySlot[key], s)
	}

	week := WeekInfo{
		Start:    monday.Format(DateLayout),
		End:      monday.AddDate(0, 0, 6).Format(DateLayout),
		Capacity: capacity,
		Days:     make([]DayInfo, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		info := DayInfo{Date: day.Format(DateLayout), Cells: make([]CellInfo, 0, hours.Len())}
		for _, t := range hours.times {
			booked := bySlot[New(day, t).Key()]
			sort.Slice(booked, func(a, b int) bool { return booked[a].ID < booked[b].ID })

			cell := CellInfo{Time: t, Booked: len(booked)}
			for _, s := range booked {
				cell.SessionIDs = append(cell.SessionIDs, s.ID)
				cell.TherapistIDs = append(cell.TherapistIDs, s.TherapistID)
			}
			cell.Remaining = capacity - cell.Booked
			if cell.Remaining < 0 {
				cell.Remaining = 0
			}
			cell.Available = cell.Remaining > 0
			info.Cells = append(info.Cells, cell)
		}
		week.Days = append(week.Days, info)
	}
	return week
}
