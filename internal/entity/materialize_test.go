package entity

import (
	"testing"

	"github.com/localfirst/tripledb/internal/triplelog"
)

func TestMaterializeFoldsTriplesByEntity(t *testing.T) {
	triples := []triplelog.Triple{
		{EntityID: "e1", Attribute: "__type", Value: "todo"},
		{EntityID: "e1", Attribute: "title", Value: "buy milk"},
		{EntityID: "e2", Attribute: "__type", Value: "todo"},
		{EntityID: "e2", Attribute: "title", Value: "buy bread"},
	}

	got := Materialize(triples)
	if len(got) != 2 {
		t.Fatalf("expected 2 materialized entities, got %d", len(got))
	}
	if got["e1"].ID() != "e1" || got["e1"]["title"] != "buy milk" {
		t.Fatalf("unexpected e1: %+v", got["e1"])
	}
	if got["e2"]["title"] != "buy bread" {
		t.Fatalf("unexpected e2: %+v", got["e2"])
	}
}

func TestMaterializeOneEmptyReturnsNotFound(t *testing.T) {
	_, ok := MaterializeOne("e1", nil)
	if ok {
		t.Fatal("expected not-found for an entity with no live triples")
	}
}

func TestMaterializeOneIncludesImplicitID(t *testing.T) {
	m, ok := MaterializeOne("e1", []triplelog.Triple{{EntityID: "e1", Attribute: "title", Value: "x"}})
	if !ok {
		t.Fatal("expected found")
	}
	if m.ID() != "e1" {
		t.Fatalf("expected implicit id field, got %q", m.ID())
	}
}
