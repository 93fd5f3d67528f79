package schedule

// Cell is the state of one (date, slot) pair in a Grid. Contested is set
// when more than one booking covers the slot; the stored data should never
// allow it, so the occupant shown is only the first match.
type Cell struct {
	Booked    bool
	BookingID int64
	Occupant  string
	Purpose   string
	Contested bool
}

type Grid map[string]map[TimeOfDay]Cell

// ContestedCell identifies a slot claimed by several bookings.
type ContestedCell struct {
	Date       string
	Slot       TimeOfDay
	BookingIDs []int64
}

// BuildGrid maps every day and slot to the first span (in the order
// given) whose interval contains the slot.
func BuildGrid(days []Day, slots []TimeOfDay, spans []Span) Grid {
	byDate := make(map[string][]Span, len(days))
	for _, s := range spans {
		byDate[s.Date] = append(byDate[s.Date], s)
	}

	grid := make(Grid, len(days))
	for _, d := range days {
		row := make(map[TimeOfDay]Cell, len(slots))
		for _, slot := range slots {
			var cell Cell
			for _, s := range byDate[d.ISO] {
				if !s.Interval.Contains(slot) {
					continue
				}
				if cell.Booked {
					cell.Contested = true
					break
				}
				cell = Cell{
					Booked:    true,
					BookingID: s.ID,
					Occupant:  s.Occupant,
					Purpose:   s.Purpose,
				}
			}
			row[slot] = cell
		}
		grid[d.ISO] = row
	}
	return grid
}

// Cell returns the cell for date and slot; unknown pairs are free.
func (g Grid) Cell(date string, slot TimeOfDay) Cell {
	return g[date][slot]
}

// Contested lists the slots covered by more than one span.
func (g Grid) Contested(spans []Span) []ContestedCell {
	var out []ContestedCell
	for date, row := range g {
		for slot, cell := range row {
			if !cell.Contested {
				continue
			}
			cc := ContestedCell{Date: date, Slot: slot}
			for _, s := range spans {
				if s.Date == date && s.Interval.Contains(slot) {
					cc.BookingIDs = append(cc.BookingIDs, s.ID)
				}
			}
			out = append(out, cc)
		}
	}
	return out
}
