package furi

import (
	"sync/atomic"

	"furi/kernel"
)

// Record is one open reference to a named kernel record. It is a capability
// token: the payload is shared with every other holder, never copied.
type Record struct {
	k      kernel.Records
	id     kernel.RecordID
	name   string
	data   any
	closed atomic.Bool
}

// OpenRecord takes a reference to the record published under name.
func OpenRecord(k kernel.Records, name string) (*Record, error) {
	id, data, st := k.RecordOpen(name)
	switch st {
	case kernel.StatusOK:
		return &Record{k: k, id: id, name: name, data: data}, nil
	case kernel.StatusErrorResource:
		return nil, fail("open record "+name, ErrRecordUnavailable)
	default:
		return nil, statusErr("open record "+name, st)
	}
}

// CreateRecord publishes data under name. Once the last reference is gone
// the kernel calls data.Close if data is an io.Closer.
func CreateRecord(k kernel.Records, name string, data any) error {
	switch st := k.RecordCreate(name, data); st {
	case kernel.StatusOK:
		return nil
	case kernel.StatusErrorResource:
		return fail("create record "+name, ErrBusy)
	default:
		return statusErr("create record "+name, st)
	}
}

// DestroyRecord unpublishes name. Open references stay valid until closed.
func DestroyRecord(k kernel.Records, name string) error {
	switch st := k.RecordDestroy(name); st {
	case kernel.StatusOK:
		return nil
	case kernel.StatusErrorParameter:
		return fail("destroy record "+name, ErrRecordUnavailable)
	default:
		return statusErr("destroy record "+name, st)
	}
}

// Name returns the record name.
func (r *Record) Name() string { return r.name }

// Data returns the shared payload, or nil after Close.
func (r *Record) Data() any {
	if r.closed.Load() {
		return nil
	}
	return r.data
}

// Clone takes another reference to the same record. Each clone is closed
// independently.
func (r *Record) Clone() (*Record, error) {
	if r.closed.Load() {
		return nil, fail("clone record "+r.name, ErrAlreadyConsumed)
	}
	return OpenRecord(r.k, r.name)
}

// Close drops this reference. Closing twice returns ErrAlreadyConsumed.
func (r *Record) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return fail("close record "+r.name, ErrAlreadyConsumed)
	}
	return statusErr("close record "+r.name, r.k.RecordClose(r.id))
}

// RecordData returns the payload of r as T.
func RecordData[T any](r *Record) (T, bool) {
	v, ok := r.Data().(T)
	return v, ok
}
