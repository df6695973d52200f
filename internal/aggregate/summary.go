// Package aggregate reduces decoded approvals into a per-spender,
// per-block-bucket summary table.
package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"approvalScope/internal/model"
)

// Config controls the bucketing of the block axis.
type Config struct {
	ChainID     uint64
	StartBlock  uint64 // inclusive
	EndBlock    uint64 // exclusive
	BucketWidth uint64
}

// Bucket is a half-open block range [Start, End).
type Bucket struct {
	Start uint64
	End   uint64
}

// Contains reports whether the block falls inside the bucket.
func (b Bucket) Contains(block uint64) bool {
	return block >= b.Start && block < b.End
}

// Summary is the aggregated approval count table. Buckets ascend; spenders
// keep first-seen order. Read-only after Build.
type Summary struct {
	ChainID  uint64
	Buckets  []Bucket
	Spenders []string

	counts  map[int]map[string]uint64
	Dropped int
}

// Buckets partitions [start, end) into consecutive half-open ranges of the
// given width; the final bucket is truncated at end.
func Buckets(start, end, width uint64) ([]Bucket, error) {
	if width == 0 {
		return nil, fmt.Errorf("bucket width must be greater than zero")
	}
	if end <= start {
		return nil, fmt.Errorf("end block must be greater than start block")
	}

	buckets := make([]Bucket, 0, (end-start+width-1)/width)
	for cursor := start; cursor < end; cursor += width {
		upper := cursor + width
		if upper > end {
			upper = end
		}
		buckets = append(buckets, Bucket{Start: cursor, End: upper})
	}
	return buckets, nil
}

// Build counts one unit per record into its (bucket, spender) cell. Records
// whose block falls outside [StartBlock, EndBlock) are dropped. Input order
// determines spender column order.
func Build(records []model.ApprovalRecord, cfg Config) (*Summary, error) {
	buckets, err := Buckets(cfg.StartBlock, cfg.EndBlock, cfg.BucketWidth)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ChainID: cfg.ChainID,
		Buckets: buckets,
		counts:  make(map[int]map[string]uint64),
	}

	seen := make(map[string]struct{})
	for _, record := range records {
		block := record.Provenance.BlockNumber
		if block < cfg.StartBlock || block >= cfg.EndBlock {
			summary.Dropped++
			continue
		}

		if _, ok := seen[record.Spender]; !ok {
			seen[record.Spender] = struct{}{}
			summary.Spenders = append(summary.Spenders, record.Spender)
		}

		idx := int((block - cfg.StartBlock) / cfg.BucketWidth)
		cells := summary.counts[idx]
		if cells == nil {
			cells = make(map[string]uint64)
			summary.counts[idx] = cells
		}
		cells[record.Spender]++
	}

	return summary, nil
}

// Count returns the approvals for a (bucket, spender) cell; absent cells
// are zero.
func (s *Summary) Count(bucketIdx int, spender string) uint64 {
	return s.counts[bucketIdx][spender]
}

// Rows flattens the table into sparse (bucket, spender) rows, bucket
// ascending then spender order. Zero cells are omitted.
func (s *Summary) Rows() []model.SummaryRow {
	rows := make([]model.SummaryRow, 0, len(s.counts))
	for idx, bucket := range s.Buckets {
		cells := s.counts[idx]
		if len(cells) == 0 {
			continue
		}
		for _, spender := range s.Spenders {
			count, ok := cells[spender]
			if !ok {
				continue
			}
			rows = append(rows, model.SummaryRow{
				ChainID:     s.ChainID,
				BucketStart: bucket.Start,
				BucketEnd:   bucket.End,
				Spender:     spender,
				Approvals:   count,
			})
		}
	}
	return rows
}

// WriteCSV renders the full matrix for charting: one row per bucket, one
// column per spender, absent cells filled with 0.
func (s *Summary) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{"bucket_start", "bucket_end"}, s.Spenders...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for idx, bucket := range s.Buckets {
		row[0] = strconv.FormatUint(bucket.Start, 10)
		row[1] = strconv.FormatUint(bucket.End, 10)
		for i, spender := range s.Spenders {
			row[2+i] = strconv.FormatUint(s.Count(idx, spender), 10)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
