package tag

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// formatValue renders a single value for the synthesis prompt. Floats are rounded to 2 places so
// the model does not mistake long decimals for encoded values.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		if val == float32(int32(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			return truncate(s, 97)
		}
		return s
	}
}

// truncate cuts s to at most n bytes on a rune boundary and marks the cut with "...".
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// FormatRows renders query output for the synthesis prompt, showing at most maxRows rows.
func FormatRows(columns []string, rows [][]any, maxRows int) string {
	if len(rows) == 0 {
		return "Query returned no results."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(columns, ", ")))
	sb.WriteString(fmt.Sprintf("Rows (%d total):\n", len(rows)))

	display := len(rows)
	if maxRows > 0 && display > maxRows {
		display = maxRows
	}
	for _, row := range rows[:display] {
		values := make([]string, len(row))
		for j, v := range row {
			values[j] = formatValue(v)
		}
		sb.WriteString(strings.Join(values, " | ") + "\n")
	}
	if display < len(rows) {
		sb.WriteString(fmt.Sprintf("... and %d more rows\n", len(rows)-display))
	}

	return sb.String()
}
