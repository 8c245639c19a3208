package store

import (
	"context"
	"fmt"
)

// Stats summarises the contents of the store
type Stats struct {
	Total   int64
	Unrated int64
	Size    int64
	// Formats holds one entry per requested format, zero counts included
	Formats []FormatCount
}

// FormatCount is the number of replays stored for one format
type FormatCount struct {
	Format string
	Count  int64
}

// RatingRange is an inclusive rating interval
type RatingRange struct {
	Min int
	Max int
}

// Label renders the range as "min-max"
func (r RatingRange) Label() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// RatingCount is the number of replays of a format inside a rating range.
// Format is "All" when counts were not split by format.
type RatingCount struct {
	Range  RatingRange
	Format string
	Count  int64
}

// RatingRanges splits [start, end) into consecutive ranges of width step
func RatingRanges(start, end, step int) []RatingRange {
	if step <= 0 {
		return nil
	}
	var ranges []RatingRange
	for x := start; x < end; x += step {
		ranges = append(ranges, RatingRange{Min: x, Max: x + step})
	}
	return ranges
}

// Stats collects totals and per-format counts for the given formats
func (s *Store) Stats(ctx context.Context, formats []string) (*Stats, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}

	st := &Stats{}
	db := s.db.WithContext(ctx).Model(&Replay{})

	if err := db.Count(&st.Total).Error; err != nil {
		return nil, fmt.Errorf("counting replays: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&Replay{}).Where("rating IS NULL").Count(&st.Unrated).Error; err != nil {
		return nil, fmt.Errorf("counting unrated replays: %w", err)
	}

	counts, err := s.CountByFormat(ctx, formats)
	if err != nil {
		return nil, err
	}
	byFormat := make(map[string]int64, len(counts))
	for _, c := range counts {
		byFormat[c.Format] = c.Count
	}
	for _, f := range formats {
		st.Formats = append(st.Formats, FormatCount{Format: f, Count: byFormat[f]})
	}

	size, err := s.Size()
	if err != nil {
		return nil, err
	}
	st.Size = size
	return st, nil
}

// CountByFormat counts replays per format, most common first. With formats
// empty every stored format is counted; otherwise only the given ones, and
// formats without replays are omitted.
func (s *Store) CountByFormat(ctx context.Context, formats []string) ([]FormatCount, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}

	q := s.db.WithContext(ctx).Model(&Replay{}).
		Select("format, COUNT(*) AS count").
		Group("format").
		Order("count DESC, format")
	if len(formats) > 0 {
		q = q.Where("format IN ?", formats)
	}

	var rows []FormatCount
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting by format: %w", err)
	}
	return rows, nil
}

// CountByRating counts rated replays inside each inclusive range. With
// formats empty one "All" row is produced per range; otherwise one row per
// range and stored format.
func (s *Store) CountByRating(ctx context.Context, ranges []RatingRange, formats []string) ([]RatingCount, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}

	var out []RatingCount
	for _, r := range ranges {
		if len(formats) == 0 {
			var n int64
			err := s.db.WithContext(ctx).Model(&Replay{}).
				Where("rating BETWEEN ? AND ?", r.Min, r.Max).
				Count(&n).Error
			if err != nil {
				return nil, fmt.Errorf("counting range %s: %w", r.Label(), err)
			}
			out = append(out, RatingCount{Range: r, Format: "All", Count: n})
			continue
		}

		var rows []FormatCount
		err := s.db.WithContext(ctx).Model(&Replay{}).
			Select("format, COUNT(*) AS count").
			Where("rating BETWEEN ? AND ? AND format IN ?", r.Min, r.Max, formats).
			Group("format").
			Order("format").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("counting range %s: %w", r.Label(), err)
		}
		for _, row := range rows {
			out = append(out, RatingCount{Range: r, Format: row.Format, Count: row.Count})
		}
	}
	return out, nil
}

// Sample returns up to n replays of format picked at random
func (s *Store) Sample(ctx context.Context, format string, n int) ([]Replay, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}

	var out []Replay
	err := s.db.WithContext(ctx).
		Where("format = ?", format).
		Order("RANDOM()").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("sampling %s: %w", format, err)
	}
	return out, nil
}
