package cli

import (
	"io"
	"time"

	"github.com/rodaine/table"
)

// newTable creates a table printing to w with consistent padding
func newTable(w io.Writer, headers ...interface{}) table.Table {
	return table.New(headers...).WithWriter(w).WithPadding(2)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
