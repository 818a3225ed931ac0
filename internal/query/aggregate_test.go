package query

import (
	"testing"

	"github.com/localfirst/tripledb/internal/entity"
)

func TestAggregateCountSumAvgMinMaxUngrouped(t *testing.T) {
	entities := []entity.Map{
		{"id": "a", "points": float64(1)},
		{"id": "b", "points": float64(2)},
		{"id": "c", "points": float64(3)},
	}
	rows := aggregate(entities, map[string]string{"count": "*", "sum": "points", "avg": "points", "min": "points", "max": "points"}, nil)
	if len(rows) != 1 {
		t.Fatalf("expected one ungrouped row, got %d", len(rows))
	}
	v := rows[0].Values
	if v["count"] != 3 {
		t.Fatalf("count: got %v", v["count"])
	}
	if v["sum"] != float64(6) {
		t.Fatalf("sum: got %v", v["sum"])
	}
	if v["avg"] != float64(2) {
		t.Fatalf("avg: got %v", v["avg"])
	}
	if v["min"] != float64(1) {
		t.Fatalf("min: got %v", v["min"])
	}
	if v["max"] != float64(3) {
		t.Fatalf("max: got %v", v["max"])
	}
}

func TestAggregateGroupByPartitionsAndReparsesKeys(t *testing.T) {
	entities := []entity.Map{
		{"id": "a", "status": "open", "points": float64(1)},
		{"id": "b", "status": "open", "points": float64(2)},
		{"id": "c", "status": "closed", "points": float64(5)},
	}
	rows := aggregate(entities, map[string]string{"count": "*"}, []string{"status"})
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
	byStatus := make(map[string]AggregateRow)
	for _, r := range rows {
		byStatus[r.Group["status"].(string)] = r
	}
	if byStatus["open"].Values["count"] != 2 {
		t.Fatalf("open group count: got %v", byStatus["open"].Values["count"])
	}
	if byStatus["closed"].Values["count"] != 1 {
		t.Fatalf("closed group count: got %v", byStatus["closed"].Values["count"])
	}
}

func TestAggregateEmptyInputYieldsZeroValues(t *testing.T) {
	rows := aggregate(nil, map[string]string{"count": "*"}, nil)
	if len(rows) != 1 || rows[0].Values["count"] != 0 {
		t.Fatalf("expected a single zero-count row for empty input, got %+v", rows)
	}
}
