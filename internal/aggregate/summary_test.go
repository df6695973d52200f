package aggregate

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"approvalScope/internal/model"
)

func approvalAt(block uint64, spender string) model.ApprovalRecord {
	return model.ApprovalRecord{
		Provenance: model.Provenance{ChainID: 1, BlockNumber: block},
		Spender:    spender,
	}
}

func TestBuckets(t *testing.T) {
	got, err := Buckets(100, 300, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Bucket{{Start: 100, End: 200}, {Start: 200, End: 300}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buckets mismatch: %+v != %+v", got, want)
	}
}

func TestBucketsTruncatedTail(t *testing.T) {
	got, err := Buckets(0, 250, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Bucket{{Start: 0, End: 100}, {Start: 100, End: 200}, {Start: 200, End: 250}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buckets mismatch: %+v != %+v", got, want)
	}
}

func TestBucketsInvalid(t *testing.T) {
	if _, err := Buckets(100, 300, 0); err == nil {
		t.Fatalf("expected error for zero width")
	}
	if _, err := Buckets(300, 100, 10); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestBuildBucketsAndDrops(t *testing.T) {
	spender := "0x2222222222222222222222222222222222222222"
	records := []model.ApprovalRecord{
		approvalAt(100, spender),
		approvalAt(105, spender),
		approvalAt(209, spender),
		approvalAt(300, spender), // exclusive upper bound, dropped
	}

	summary, err := Build(records, Config{ChainID: 1, StartBlock: 100, EndBlock: 300, BucketWidth: 100})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(summary.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(summary.Buckets))
	}
	if got := summary.Count(0, spender); got != 2 {
		t.Fatalf("bucket [100,200) must hold blocks 100 and 105, got %d", got)
	}
	if got := summary.Count(1, spender); got != 1 {
		t.Fatalf("bucket [200,300) must hold block 209, got %d", got)
	}
	if summary.Dropped != 1 {
		t.Fatalf("block 300 must be dropped, dropped=%d", summary.Dropped)
	}
}

func TestBuildSpenderOrderAndRows(t *testing.T) {
	a := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	b := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	records := []model.ApprovalRecord{
		approvalAt(10, b),
		approvalAt(11, a),
		approvalAt(25, b),
		approvalAt(25, b),
	}

	summary, err := Build(records, Config{ChainID: 1, StartBlock: 0, EndBlock: 40, BucketWidth: 20})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !reflect.DeepEqual(summary.Spenders, []string{b, a}) {
		t.Fatalf("spenders must keep first-seen order: %v", summary.Spenders)
	}

	rows := summary.Rows()
	want := []model.SummaryRow{
		{ChainID: 1, BucketStart: 0, BucketEnd: 20, Spender: b, Approvals: 1},
		{ChainID: 1, BucketStart: 0, BucketEnd: 20, Spender: a, Approvals: 1},
		{ChainID: 1, BucketStart: 20, BucketEnd: 40, Spender: b, Approvals: 2},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows mismatch: %+v != %+v", rows, want)
	}
}

func TestWriteCSVZeroFills(t *testing.T) {
	a := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	b := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	records := []model.ApprovalRecord{
		approvalAt(5, a),
		approvalAt(15, b),
	}

	summary, err := Build(records, Config{ChainID: 1, StartBlock: 0, EndBlock: 20, BucketWidth: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var buf bytes.Buffer
	if err := summary.WriteCSV(&buf); err != nil {
		t.Fatalf("csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"bucket_start,bucket_end," + a + "," + b,
		"0,10,1,0",
		"10,20,0,1",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("csv mismatch:\n%v\n!=\n%v", lines, want)
	}
}

func TestBuildEndToEndCounts(t *testing.T) {
	// Three approval logs across two contracts, grouped purely by spender.
	s1 := "0x1111111111111111111111111111111111111111"
	s2 := "0x2222222222222222222222222222222222222222"

	records := []model.ApprovalRecord{
		{Provenance: model.Provenance{ChainID: 1, BlockNumber: 100, Address: "0xA"}, Spender: s1},
		{Provenance: model.Provenance{ChainID: 1, BlockNumber: 150, Address: "0xB"}, Spender: s1},
		{Provenance: model.Provenance{ChainID: 1, BlockNumber: 250, Address: "0xA"}, Spender: s2},
	}

	summary, err := Build(records, Config{ChainID: 1, StartBlock: 100, EndBlock: 300, BucketWidth: 100})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got := summary.Count(0, s1); got != 2 {
		t.Fatalf("(bucket0, s1) = %d, want 2", got)
	}
	if got := summary.Count(0, s2); got != 0 {
		t.Fatalf("(bucket0, s2) = %d, want 0", got)
	}
	if got := summary.Count(1, s2); got != 1 {
		t.Fatalf("(bucket1, s2) = %d, want 1", got)
	}
	if got := summary.Count(1, s1); got != 0 {
		t.Fatalf("(bucket1, s1) = %d, want 0", got)
	}
}
