package tui

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/moralis-scan/scan/internal/cloudquery"
)

// Reserved row keys added by ObjectRow.
const (
	KeyObjectID  = "objectId"
	KeyCreatedAt = "createdAt"
)

// ObjectRow flattens a Parse object to a display row: its attributes plus
// objectId and createdAt.
func ObjectRow(o cloudquery.Object) map[string]any {
	row := make(map[string]any, len(o.Attributes)+2) //nolint:mnd // objectId and createdAt.
	for k, v := range o.Attributes {
		row[k] = v
	}
	if o.ObjectID != "" {
		row[KeyObjectID] = o.ObjectID
	}
	if !o.CreatedAt.IsZero() {
		row[KeyCreatedAt] = o.CreatedAt
	}
	return row
}

// Columns returns the union of keys across rows, objectId first and the
// rest sorted.
func Columns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	hasID := false
	for _, row := range rows {
		for k := range row {
			if seen[k] {
				continue
			}
			seen[k] = true
			if k == KeyObjectID {
				hasID = true
				continue
			}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if hasID {
		keys = append([]string{KeyObjectID}, keys...)
	}
	return keys
}

// FormatValue renders a decoded JSON value for a table cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "?"
		}
		return string(data)
	}
}

// truncate shortens s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	const ellipsis = "..."
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return string(r[:width])
	}
	return string(r[:width-len(ellipsis)]) + ellipsis
}
