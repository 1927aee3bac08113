// Package cronexpr validates and evaluates 5-field cron expressions,
// always in UTC, on top of robfig/cron's parser.
package cronexpr

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnsatisfiableSchedule is returned by Next when a cron expression
// parses but robfig/cron finds no matching instant after the given time
// (it reports this by returning the zero time, e.g. for "0 0 30 2 *").
var ErrUnsatisfiableSchedule = errors.New("cronexpr: schedule does not resolve to any future run")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate parses expr and returns an error if it is not a valid 5-field
// cron expression.
func Validate(expr string) error {
	_, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("cronexpr: invalid expression %q: %w", expr, err)
	}
	return nil
}

// Next returns the next UTC activation time strictly after from.
func Next(expr string, from time.Time) (time.Time, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cronexpr: invalid expression %q: %w", expr, err)
	}
	next := schedule.Next(from.UTC())
	if next.IsZero() {
		return time.Time{}, ErrUnsatisfiableSchedule
	}
	return next.UTC(), nil
}

// NextN returns the next n UTC activations strictly after from.
func NextN(expr string, from time.Time, n int) ([]time.Time, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cronexpr: invalid expression %q: %w", expr, err)
	}

	out := make([]time.Time, 0, n)
	cursor := from.UTC()
	for i := 0; i < n; i++ {
		cursor = schedule.Next(cursor)
		if cursor.IsZero() {
			break
		}
		out = append(out, cursor.UTC())
	}
	return out, nil
}
