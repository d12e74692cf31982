// Package heatmap aggregates group availability into per-slot counts and
// color intensities.
package heatmap

import (
	"sort"
	"time"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/timeslot"
)

// MaxIntensity is the intensity of a slot every participant marked.
const MaxIntensity = 255

// Cell is the aggregate of one (date, slot) pair.
type Cell struct {
	Date      string               `json:"date"`
	Slot      timeslot.Slot        `json:"-"`
	Label     string               `json:"slot"`
	Available []domain.Participant `json:"availableParticipants"`
	Intensity int                  `json:"intensity"`
}

// Count is the number of participants available in the cell.
func (c Cell) Count() int {
	return len(c.Available)
}

type cellKey struct {
	date string
	slot timeslot.Slot
}

// HeatMap is the derived, read-only view of a group's availability.
type HeatMap struct {
	participants []domain.Participant
	cells        map[cellKey]Cell
}

// Intensity maps count of total to 0..255, rounding down. Zero participants
// yields zero.
func Intensity(count, total int) int {
	if total <= 0 || count <= 0 {
		return 0
	}
	if count >= total {
		return MaxIntensity
	}
	return count * MaxIntensity / total
}

// Aggregate builds the heat-map for participants from availability records.
// Records of users outside participants and labels outside the grid are
// ignored, and a participant is counted at most once per cell.
func Aggregate(participants []domain.Participant, records []domain.Availability) HeatMap {
	members := make(map[string]domain.Participant, len(participants))
	ordered := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if _, dup := members[p.UserID]; dup {
			continue
		}
		members[p.UserID] = p
		ordered = append(ordered, p)
	}

	seen := make(map[cellKey]map[string]struct{})
	for _, record := range records {
		if _, ok := members[record.UserID]; !ok {
			continue
		}
		for _, label := range record.Slots {
			slot, err := timeslot.ParseSlot(label)
			if err != nil {
				continue
			}
			key := cellKey{date: record.Date, slot: slot}
			users, ok := seen[key]
			if !ok {
				users = make(map[string]struct{})
				seen[key] = users
			}
			users[record.UserID] = struct{}{}
		}
	}

	cells := make(map[cellKey]Cell, len(seen))
	total := len(ordered)
	for key, users := range seen {
		available := make([]domain.Participant, 0, len(users))
		for _, p := range ordered {
			if _, ok := users[p.UserID]; ok {
				available = append(available, p)
			}
		}
		cells[key] = Cell{
			Date:      key.date,
			Slot:      key.slot,
			Label:     key.slot.String(),
			Available: available,
			Intensity: Intensity(len(available), total),
		}
	}

	return HeatMap{participants: ordered, cells: cells}
}

// Total is the number of distinct participants the map was computed for.
func (h HeatMap) Total() int {
	return len(h.participants)
}

// Cell returns the aggregate for date and slot. Cells nobody selected have
// zero count and intensity.
func (h HeatMap) Cell(date string, slot timeslot.Slot) Cell {
	if cell, ok := h.cells[cellKey{date: date, slot: slot}]; ok {
		return cell
	}
	return Cell{Date: date, Slot: slot, Label: slot.String(), Available: []domain.Participant{}}
}

// Cells returns every non-empty cell ordered by date then slot.
func (h HeatMap) Cells() []Cell {
	cells := make([]Cell, 0, len(h.cells))
	for _, c := range h.cells {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Date == cells[j].Date {
			return cells[i].Slot < cells[j].Slot
		}
		return cells[i].Date < cells[j].Date
	})
	return cells
}

// Unavailable lists participants who did not mark date and slot.
func (h HeatMap) Unavailable(date string, slot timeslot.Slot) []domain.Participant {
	cell := h.Cell(date, slot)
	available := make(map[string]struct{}, len(cell.Available))
	for _, p := range cell.Available {
		available[p.UserID] = struct{}{}
	}
	out := make([]domain.Participant, 0, len(h.participants)-len(available))
	for _, p := range h.participants {
		if _, ok := available[p.UserID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// CellDetail is the drill-down of one cell: who can and who cannot make it.
type CellDetail struct {
	Cell
	TotalParticipants int                  `json:"totalParticipants"`
	Unavailable       []domain.Participant `json:"unavailableParticipants"`
}

// Detail returns the cell for date and slot with its unavailable participants.
func (h HeatMap) Detail(date string, slot timeslot.Slot) CellDetail {
	return CellDetail{
		Cell:              h.Cell(date, slot),
		TotalParticipants: h.Total(),
		Unavailable:       h.Unavailable(date, slot),
	}
}

// WeekRow is one time slot across the seven days of a week.
type WeekRow struct {
	Slot  string  `json:"slot"`
	Cells [7]Cell `json:"cells"`
}

// WeekView is the weekly table: 33 slot rows by 7 day columns.
type WeekView struct {
	Dates             [7]string `json:"dates"`
	TotalParticipants int       `json:"totalParticipants"`
	Rows              []WeekRow `json:"rows"`
}

// Week renders the seven days starting at the Monday of the week holding day.
func (h HeatMap) Week(day time.Time) WeekView {
	monday := WeekStart(day)
	view := WeekView{TotalParticipants: h.Total(), Rows: make([]WeekRow, 0, timeslot.Count)}
	for i := range view.Dates {
		view.Dates[i] = monday.AddDate(0, 0, i).Format(domain.DateLayout)
	}
	for _, slot := range timeslot.All() {
		row := WeekRow{Slot: slot.String()}
		for i, date := range view.Dates {
			row.Cells[i] = h.Cell(date, slot)
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// WeekStart returns midnight of the Monday on or before day, in day's location.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	y, m, d := day.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, day.Location())
}
