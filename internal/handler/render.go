package handler

import (
	"fmt"
	"io"
)

// RenderText writes one line per row, or the failure message when there is one.
func RenderText(w io.Writer, rows []Row, lastError *string) error {
	if lastError != nil {
		_, err := fmt.Fprintln(w, *lastError)
		return err
	}
	for _, row := range rows {
		_, err := fmt.Fprintf(w, "%s: %s  low %s  high %s  humidity %s  [icon %s %s]\n",
			row.DayOfWeek, row.Description, row.MinTemp, row.MaxTemp, row.HumidityPercent, row.IconID, row.IconState)
		if err != nil {
			return err
		}
	}
	return nil
}
