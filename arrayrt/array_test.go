package arrayrt

import (
	"testing"

	"nilanc/token"
	"nilanc/value"
)

func TestPushPopIndexLen(t *testing.T) {
	a := New(token.Int, []value.Value{value.Int(1), value.Int(2)})
	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	a.Push(value.Int(3))
	if a.Len() != 3 {
		t.Fatalf("Len() after push = %d, want 3", a.Len())
	}
	v, err := a.Index(2)
	if err != nil || v.IntV != 3 {
		t.Fatalf("Index(2) = %v, %v", v, err)
	}
	if err := a.Pop(); err != nil {
		t.Fatalf("Pop() error: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("Len() after pop = %d, want 2", a.Len())
	}
}

func TestIndexOutOfRangeAtLength(t *testing.T) {
	a := New(token.Int, []value.Value{value.Int(1), value.Int(2)})
	if _, err := a.Index(2); err == nil {
		t.Fatalf("expected an out-of-range error indexing at length")
	}
	if _, err := a.Index(-1); err == nil {
		t.Fatalf("expected an out-of-range error for a negative index")
	}
}

func TestPopOnEmptyArray(t *testing.T) {
	a := New(token.Int, nil)
	if err := a.Pop(); err == nil {
		t.Fatalf("expected an error popping an empty array")
	}
}

func TestTableAllocAndFreeLIFO(t *testing.T) {
	tbl := NewTable()
	i0 := tbl.Alloc(token.Int, nil)
	i1 := tbl.Alloc(token.Dcml, nil)
	if i0 != 0 || i1 != 1 {
		t.Fatalf("unexpected indices: %d, %d", i0, i1)
	}
	a1, err := tbl.Get(i1)
	if err != nil || a1.ElemType.Tag != token.DcmlTag {
		t.Fatalf("Get(1) = %v, %v", a1, err)
	}
	if err := tbl.Free(); err != nil {
		t.Fatalf("Free() error: %v", err)
	}
	if _, err := tbl.Get(i1); err == nil {
		t.Fatalf("expected index %d to be freed", i1)
	}
	a0, err := tbl.Get(i0)
	if err != nil || a0.ElemType.Tag != token.IntTag {
		t.Fatalf("Get(0) after freeing top = %v, %v", a0, err)
	}
}

func TestFreeOnEmptyTable(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Free(); err == nil {
		t.Fatalf("expected an error freeing an empty table")
	}
}
