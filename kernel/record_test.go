package kernel

import "testing"

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestRecordRefcount(t *testing.T) {
	h := New(DefaultConfig())
	data := &closeCounter{}

	if _, _, st := h.RecordOpen("dolphin"); st != StatusErrorResource {
		t.Fatalf("RecordOpen() unknown = %s, want %s", st, StatusErrorResource)
	}
	if st := h.RecordCreate("dolphin", data); st != StatusOK {
		t.Fatalf("RecordCreate() = %s", st)
	}
	if st := h.RecordCreate("dolphin", data); st != StatusErrorResource {
		t.Fatalf("RecordCreate() duplicate = %s, want %s", st, StatusErrorResource)
	}

	a, da, _ := h.RecordOpen("dolphin")
	b, db, _ := h.RecordOpen("dolphin")
	if da != db || da != any(data) {
		t.Fatal("RecordOpen() returned different payloads")
	}
	if n := h.RecordHolders("dolphin"); n != 3 {
		t.Fatalf("RecordHolders() = %d, want 3", n)
	}

	if st := h.RecordDestroy("dolphin"); st != StatusOK {
		t.Fatalf("RecordDestroy() = %s", st)
	}
	if h.RecordExists("dolphin") {
		t.Fatal("RecordExists() = true after destroy")
	}
	h.RecordClose(a)
	if data.closed != 0 {
		t.Fatal("payload closed with a holder left")
	}
	h.RecordClose(b)
	if data.closed != 1 {
		t.Fatalf("payload closed %d times, want 1", data.closed)
	}
	if st := h.RecordClose(b); st != StatusErrorParameter {
		t.Fatalf("RecordClose() twice = %s, want %s", st, StatusErrorParameter)
	}
}
