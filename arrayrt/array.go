// Package arrayrt implements nilan's dynamically-sized typed array: the
// VM's side heap for Array(T) values. Grounded on
// original_source/src/lang/array.rs (Array{data_type, data},
// index()/push_wrap()/pop()); its apparent off-by-one index-bounds bug
// (indexing allowed through an element past the end) is not carried
// forward — bounds here are strictly 0 <= i < len.
package arrayrt

import (
	"fmt"

	"nilanc/token"
	"nilanc/value"
)

// OutOfRangeError is fatal per spec.md §4.7: indexing past an array's
// bounds aborts the VM.
type OutOfRangeError struct {
	Index, Length int
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("💥 array index %d out of range for length %d", e.Index, e.Length)
}

// Array is a single dynamically-sized, homogeneously-typed array living in
// the VM's array table. Index-stable for its lifetime: FreeArr only ever
// removes the last (LIFO) entry, so existing indices into other arrays
// never change.
type Array struct {
	ElemType token.Type
	Data      []value.Value
}

func New(elemType token.Type, initial []value.Value) *Array {
	return &Array{ElemType: elemType, Data: initial}
}

func (a *Array) Len() int { return len(a.Data) }

func (a *Array) Push(v value.Value) {
	a.Data = append(a.Data, v)
}

// Pop shrinks the array by one element, discarding the removed value (the
// VM's ArrPop instruction does not push it anywhere).
func (a *Array) Pop() error {
	if len(a.Data) == 0 {
		return OutOfRangeError{Index: -1, Length: 0}
	}
	a.Data = a.Data[:len(a.Data)-1]
	return nil
}

func (a *Array) Index(i int) (value.Value, error) {
	if i < 0 || i >= len(a.Data) {
		return value.Value{}, OutOfRangeError{Index: i, Length: len(a.Data)}
	}
	return a.Data[i], nil
}

// Table is the VM's array side-heap: a stack of arrays with strict LIFO
// lifetime matching their enclosing lexical scope.
type Table struct {
	arrays []*Array
}

func NewTable() *Table { return &Table{} }

// Alloc appends a new array and returns its stable index.
func (t *Table) Alloc(elemType token.Type, initial []value.Value) uint16 {
	t.arrays = append(t.arrays, New(elemType, initial))
	return uint16(len(t.arrays) - 1)
}

func (t *Table) Get(idx uint16) (*Array, error) {
	if int(idx) >= len(t.arrays) {
		return nil, fmt.Errorf("💥 invalid array table index %d", idx)
	}
	return t.arrays[idx], nil
}

// Free pops the last entry from the table (FreeArr's semantics: arrays are
// freed strictly in reverse of their declaration order).
func (t *Table) Free() error {
	if len(t.arrays) == 0 {
		return fmt.Errorf("🤖 FreeArr on an empty array table")
	}
	t.arrays = t.arrays[:len(t.arrays)-1]
	return nil
}
