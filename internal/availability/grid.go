package availability

import (
	"fmt"
	"time"
)

// GridStep is the cell size of the weekly schedule grid.
const GridStep = 15 * time.Minute

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DaySchedule lists the covered cells of one weekday.
type DaySchedule struct {
	DayOfWeek int      `json:"day_of_week"`
	Name      string   `json:"name"`
	Slots     []string `json:"slots"`
}

// WeeklyGrid shows which cells of a Sunday-first week fall inside a weekly or
// daily rule. It reflects rule membership only; it is not a list of bookable slots.
type WeeklyGrid struct {
	DoctorID string        `json:"doctor_id"`
	Step     int           `json:"step_minutes"`
	Days     []DaySchedule `json:"days"`
}

// gridCells returns every HH:mm label of a day at GridStep.
func gridCells() []string {
	n := int((24 * time.Hour) / GridStep)
	cells := make([]string, 0, n)
	for i := 0; i < n; i++ {
		m := i * int(GridStep/time.Minute)
		cells = append(cells, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return cells
}

// BuildWeeklyGrid marks a cell covered when a rule applies to that weekday and
// start_time <= cell < end_time.
func BuildWeeklyGrid(doctorID string, rules []*Rule) WeeklyGrid {
	cells := gridCells()
	grid := WeeklyGrid{DoctorID: doctorID, Step: int(GridStep / time.Minute)}
	for day := 0; day < 7; day++ {
		ds := DaySchedule{DayOfWeek: day, Name: weekdayNames[day], Slots: []string{}}
		for _, cell := range cells {
			for _, r := range rules {
				if appliesTo(r, day) && r.StartTime <= cell && r.EndTime > cell {
					ds.Slots = append(ds.Slots, cell)
					break
				}
			}
		}
		grid.Days = append(grid.Days, ds)
	}
	return grid
}

func appliesTo(r *Rule, day int) bool {
	switch r.RecurrenceType {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return r.DayOfWeek != nil && *r.DayOfWeek == day
	default:
		return false
	}
}
