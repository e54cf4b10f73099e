package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/stridelake/stridelake/pkg/store"
	"github.com/stridelake/stridelake/pkg/strava"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func renderRows(w io.Writer, columns []string, rows [][]any) {
	table := newTable(w, columns)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellString(v)
		}
		table.Append(cells)
	}
	table.Render()
}

func renderUpdates(w io.Writer, updates []strava.AthleteUpdate) {
	table := newTable(w, []string{"Athlete ID", "Updated Activities"})
	total := 0
	for _, u := range updates {
		table.Append([]string{strconv.FormatInt(u.AthleteID, 10), strconv.Itoa(u.NumUpdatedActivities)})
		total += u.NumUpdatedActivities
	}
	table.SetFooter([]string{"Total", strconv.Itoa(total)})
	table.Render()
}

func renderColumns(w io.Writer, columns []store.Column) {
	table := newTable(w, []string{"Table", "Column", "Type", "Nullable"})
	for _, c := range columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		table.Append([]string{c.Table, c.Name, c.DataType, nullable})
	}
	table.Render()
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', 2, 64)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
