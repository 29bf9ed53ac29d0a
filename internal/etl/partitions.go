package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/BartekS5/sqlexport/pkg/models"
	"github.com/BartekS5/sqlexport/pkg/utils"
)

// maxRangeDays bounds a from/to expansion so a typo cannot plan years of units.
const maxRangeDays = 3660

// ResolvePartitions collects partition keys from the explicit list, the
// partition query and the from/to date range, in that order, dropping
// duplicates.
func ResolvePartitions(ctx context.Context, src Source, cfg models.PartitionConfig) ([]PartitionKey, error) {
	keys := append([]string{}, cfg.Keys...)

	if strings.TrimSpace(cfg.QueryText) != "" {
		queried, err := queryPartitions(ctx, src, cfg.QueryText)
		if err != nil {
			return nil, err
		}
		keys = append(keys, queried...)
	}

	if cfg.From != "" || cfg.To != "" {
		days, err := DateRange(cfg.From, cfg.To)
		if err != nil {
			return nil, err
		}
		keys = append(keys, days...)
	}

	keys = lo.Uniq(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("no partition keys resolved")
	}
	out := make([]PartitionKey, len(keys))
	for i, k := range keys {
		if err := ValidatePartitionKey(k); err != nil {
			return nil, err
		}
		out[i] = PartitionKey(k)
	}
	return out, nil
}

func queryPartitions(ctx context.Context, src Source, query string) ([]string, error) {
	rows, err := src.QueryContext(ctx, strings.TrimRight(strings.TrimSpace(query), ";"))
	if err != nil {
		return nil, sourceError("partitions", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, sourceError("partitions", err)
	}
	raw := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	var keys []string
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, sourceError("partitions", err)
		}
		if raw[0] == nil {
			continue
		}
		keys = append(keys, partitionText(raw[0]))
	}
	if err := rows.Err(); err != nil {
		return nil, sourceError("partitions", err)
	}
	return keys, nil
}

// partitionText renders a queried key. Midnight timestamps become plain dates.
func partitionText(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		midnight := t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
		s, _ := utils.FormatDate(t, midnight)
		return s
	}
	return strings.TrimSpace(utils.ToString(v))
}

// DateRange expands an inclusive YYYY-MM-DD range into daily keys. A missing
// bound defaults to the other one.
func DateRange(from, to string) ([]string, error) {
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	start, err := time.Parse(utils.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid partition range start %q: %w", from, err)
	}
	end, err := time.Parse(utils.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid partition range end %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("partition range end %s is before start %s", to, from)
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("partition range %s..%s exceeds %d days", from, to, maxRangeDays)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(utils.DateLayout))
	}
	return days, nil
}

// ValidatePartitionKey rejects keys that cannot be embedded in an output name.
func ValidatePartitionKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("empty partition key")
	case strings.ContainsAny(key, `/\`+"\x00"), strings.Contains(key, ".."):
		return fmt.Errorf("partition key %q cannot be used in a file name", key)
	}
	return nil
}
