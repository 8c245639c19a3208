package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes replays as CSV with an id,format,rating,log header. An
// unrated replay has an empty rating cell.
func WriteCSV(w io.Writer, replays []Replay) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "format", "rating", "log"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range replays {
		rating := ""
		if r.Rating != nil {
			rating = strconv.Itoa(*r.Rating)
		}
		if err := cw.Write([]string{r.ID, r.Format, rating, r.Log}); err != nil {
			return fmt.Errorf("writing %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
