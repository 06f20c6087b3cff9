package importer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"timetable-backend/timetable"
)

const maxSheetName = 31

// ExportTimetable writes one worksheet per class: a "Time" column followed by one column per day.
func ExportTimetable(w io.Writer, grids []timetable.ClassGrid) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	used := map[string]int{"sheet1": 1}
	for i, g := range grids {
		name := uniqueSheetName(g.ClassName, used)
		idx, err := f.NewSheet(name)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeGrid(f, name, g, header); err != nil {
			return err
		}
	}
	if len(grids) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeGrid(f *excelize.File, sheet string, g timetable.ClassGrid, headerStyle int) error {
	days := gridDays(g)
	labels := gridLabels(g)

	head := make([]interface{}, 0, len(days)+1)
	head = append(head, "Time")
	for _, d := range days {
		head = append(head, d)
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(head), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, label := range labels {
		row := make([]interface{}, 0, len(days)+1)
		row = append(row, label)
		for _, d := range days {
			cell, ok := g.Days[d][label]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, CellText(cell))
		}
		start, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return err
		}
	}
	if len(days) == 0 {
		return nil
	}
	return f.SetColWidth(sheet, "B", columnName(len(days)+1), 28)
}

// CellText renders a grid cell as "CODE Subject / Teacher / Room".
func CellText(r timetable.GridRow) string {
	parts := []string{strings.TrimSpace(r.SubjectCode + " " + r.SubjectName)}
	if r.TeacherName != "" {
		parts = append(parts, r.TeacherName)
	}
	if r.RoomNumber != "" {
		parts = append(parts, r.RoomNumber)
	}
	if r.Type != "" && r.Type != "THEORY" {
		parts = append(parts, r.Type)
	}
	return strings.Join(parts, " / ")
}

func gridDays(g timetable.ClassGrid) []string {
	days := make([]string, 0, len(g.Days))
	for d := range g.Days {
		days = append(days, d)
	}
	rank := func(d string) int {
		if i, ok := timetable.DayIndex(d); ok {
			return i
		}
		return 1 << 20
	}
	sort.SliceStable(days, func(i, j int) bool {
		ri, rj := rank(days[i]), rank(days[j])
		if ri != rj {
			return ri < rj
		}
		return days[i] < days[j]
	})
	return days
}

func gridLabels(g timetable.ClassGrid) []string {
	seen := map[string]bool{}
	var labels []string
	for _, cells := range g.Days {
		for l := range cells {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	// "HH:MM" sorts lexically; slot#N labels go last.
	sort.Slice(labels, func(i, j int) bool {
		si, sj := strings.HasPrefix(labels[i], "slot#"), strings.HasPrefix(labels[j], "slot#")
		if si != sj {
			return sj
		}
		return labels[i] < labels[j]
	})
	return labels
}

func uniqueSheetName(name string, used map[string]int) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Class"
	}
	if len([]rune(clean)) > maxSheetName {
		clean = string([]rune(clean)[:maxSheetName])
	}
	key := strings.ToLower(clean)
	n := used[key]
	used[key] = n + 1
	if n == 0 {
		return clean
	}
	suffix := fmt.Sprintf(" (%d)", n+1)
	r := []rune(clean)
	if len(r)+len(suffix) > maxSheetName {
		r = r[:maxSheetName-len(suffix)]
	}
	return string(r) + suffix
}

func columnName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}
