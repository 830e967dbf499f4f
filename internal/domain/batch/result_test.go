package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("doc-1")
	if r.ID() != "doc-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
	if !r.Stored() {
		t.Error("Stored() = false for ok item")
	}
}

func TestNewDegraded(t *testing.T) {
	r := NewDegraded("doc-3")
	if r.Status() != StatusDegraded {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusDegraded)
	}
	if !r.Stored() {
		t.Error("degraded item is still stored")
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("something failed")
	r := NewError("doc-2", err)
	if r.ID() != "doc-2" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
	if r.Stored() {
		t.Error("Stored() = true for failed item")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		NewOK("a"), NewOK("b"), NewDegraded("c"), NewError("d", errors.New("x")),
	})
	if s != (Summary{OK: 2, Degraded: 1, Failed: 1}) {
		t.Errorf("Summarize() = %+v", s)
	}
}
