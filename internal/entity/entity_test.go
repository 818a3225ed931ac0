package entity

import "testing"

func TestEqualIgnoresKeyOrderAndNumericRepresentation(t *testing.T) {
	a := map[string]any{"x": float64(1), "y": map[string]any{"a": "1", "b": float64(2)}}
	b := map[string]any{"y": map[string]any{"b": float64(2), "a": "1"}, "x": float64(1)}
	if !Equal(a, b) {
		t.Fatal("expected structurally identical maps to compare equal regardless of key order")
	}
}

func TestEqualDetectsDifference(t *testing.T) {
	if Equal(map[string]any{"x": float64(1)}, map[string]any{"x": float64(2)}) {
		t.Fatal("expected differing values to compare unequal")
	}
}

func TestDeepMergeRecursesIntoNestedObjects(t *testing.T) {
	dst := map[string]any{"profile": map[string]any{"name": "alice", "age": float64(30)}, "active": true}
	src := map[string]any{"profile": map[string]any{"age": float64(31)}}

	got := DeepMerge(dst, src)

	profile, ok := got["profile"].(map[string]any)
	if !ok {
		t.Fatalf("expected profile to remain a map, got %T", got["profile"])
	}
	if profile["name"] != "alice" {
		t.Fatalf("expected untouched nested field to survive the merge, got %v", profile["name"])
	}
	if profile["age"] != float64(31) {
		t.Fatalf("expected nested field to be overwritten, got %v", profile["age"])
	}
	if got["active"] != true {
		t.Fatalf("expected untouched top-level field to survive, got %v", got["active"])
	}
}

func TestDeepMergeReplacesListsRatherThanConcatenating(t *testing.T) {
	dst := map[string]any{"tags": []any{"a", "b"}}
	src := map[string]any{"tags": []any{"c"}}

	got := DeepMerge(dst, src)

	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "c" {
		t.Fatalf("expected list to be replaced wholesale, got %v", got["tags"])
	}
}

func TestMapTypeAndID(t *testing.T) {
	m := Map{IDField: "e1", TypeAttribute: "todo"}
	if m.ID() != "e1" {
		t.Fatalf("expected id e1, got %q", m.ID())
	}
	if m.Type() != "todo" {
		t.Fatalf("expected type todo, got %q", m.Type())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := Map{"a": "1"}
	clone := m.Clone()
	clone["a"] = "2"
	if m["a"] != "1" {
		t.Fatal("mutating the clone must not affect the original")
	}
}
