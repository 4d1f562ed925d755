package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed 5-field cron expression (minute, hour, day-of-month,
// month, day-of-week). Each field is a set of allowed values.
type CronExpr struct {
	fields [5]map[int]bool
}

var cronBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}
var cronFieldNames = [5]string{"minute", "hour", "day-of-month", "month", "day-of-week"}

// ParseCron parses a standard 5-field cron expression.
// Supports: *, */N, N, N-M, N-M/S, comma-separated combinations.
func ParseCron(expr string) (*CronExpr, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("cron: expected 5 fields, got %d", len(parts))
	}
	var c CronExpr
	for i, part := range parts {
		set, err := parseCronField(part, cronBounds[i][0], cronBounds[i][1])
		if err != nil {
			return nil, fmt.Errorf("cron: %s: %w", cronFieldNames[i], err)
		}
		c.fields[i] = set
	}
	return &c, nil
}

// Matches returns true if t falls within the expression.
func (c *CronExpr) Matches(t time.Time) bool {
	return c.fields[0][t.Minute()] &&
		c.fields[1][t.Hour()] &&
		c.fields[2][t.Day()] &&
		c.fields[3][int(t.Month())] &&
		c.fields[4][int(t.Weekday())]
}

func parseCronField(field string, lo, hi int) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		start, end, step := lo, hi, 1
		rangePart := part

		if idx := strings.IndexByte(part, '/'); idx >= 0 {
			s, err := strconv.Atoi(part[idx+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step %q", part)
			}
			step = s
			rangePart = part[:idx]
		}

		switch {
		case rangePart == "*":
			// full range
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			a, errA := strconv.Atoi(bounds[0])
			b, errB := strconv.Atoi(bounds[1])
			if errA != nil || errB != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			start, end = a, b
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q", part)
			}
			start, end = v, v
		}

		if start < lo || end > hi || start > end {
			return nil, fmt.Errorf("%q out of bounds [%d,%d]", part, lo, hi)
		}
		for v := start; v <= end; v += step {
			set[v] = true
		}
	}
	return set, nil
}
