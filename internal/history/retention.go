package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Record is the metadata a retention policy decides on.
type Record struct {
	ID int64
	At time.Time
}

// RetentionPolicy decides which records to keep. Input is sorted newest-first.
type RetentionPolicy interface {
	Apply(records []Record) (keep []Record)
}

// CountPolicy keeps the N most recent records.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount records.
func (p *CountPolicy) Apply(records []Record) []Record {
	if len(records) <= p.MaxCount {
		return records
	}
	return records[:p.MaxCount]
}

// AgePolicy keeps records newer than MaxAge, measured from Now.
type AgePolicy struct {
	MaxAge time.Duration
	Now    time.Time
}

// Apply keeps records whose timestamp is within MaxAge of Now.
func (p *AgePolicy) Apply(records []Record) []Record {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-p.MaxAge)
	var keep []Record
	for _, r := range records {
		if r.At.After(cutoff) {
			keep = append(keep, r)
		}
	}
	return keep
}

// CompositePolicy keeps a record if ANY sub-policy wants it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of records kept by any sub-policy, in input order.
func (p *CompositePolicy) Apply(records []Record) []Record {
	kept := make(map[int64]bool)
	for _, policy := range p.Policies {
		for _, r := range policy.Apply(records) {
			kept[r.ID] = true
		}
	}

	var result []Record
	for _, r := range records {
		if kept[r.ID] {
			result = append(result, r)
		}
	}
	return result
}

// PruneResult counts the records a prune removed.
type PruneResult struct {
	Runs  int `json:"runs"`
	Diffs int `json:"diffs"`
}

// Prune deletes the runs and diffs policy does not keep. Per-overlay results
// go with their run.
func (s *Store) Prune(ctx context.Context, policy RetentionPolicy) (PruneResult, error) {
	var res PruneResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []struct {
		name, column string
		count        *int
	}{
		{"runs", "started_at", &res.Runs},
		{"diffs", "compared_at", &res.Diffs},
	}
	for _, tbl := range tables {
		records, err := listRecords(ctx, tx, tbl.name, tbl.column)
		if err != nil {
			return PruneResult{}, err
		}

		keep := make(map[int64]bool)
		for _, r := range policy.Apply(records) {
			keep[r.ID] = true
		}
		for _, r := range records {
			if keep[r.ID] {
				continue
			}
			// #nosec G202 -- table name comes from the fixed list above
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl.name+" WHERE id = ?", r.ID); err != nil {
				return PruneResult{}, fmt.Errorf("deleting %s %d: %w", tbl.name, r.ID, err)
			}
			*tbl.count++
		}
	}

	if err := tx.Commit(); err != nil {
		return PruneResult{}, fmt.Errorf("failed to commit prune: %w", err)
	}
	return res, nil
}

func listRecords(ctx context.Context, tx *sql.Tx, table, column string) ([]Record, error) {
	// #nosec G202 -- table and column come from a fixed list
	rows, err := tx.QueryContext(ctx, "SELECT id, "+column+" FROM "+table+" ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r  Record
			at string
		)
		if err := rows.Scan(&r.ID, &at); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		r.At = parseTime(at)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ParseAge parses durations like "30d", "2w" and "720h".
func ParseAge(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}
