package kernel

import (
	"io"

	"github.com/golang/glog"
)

// recordObj is one published record. The creator holds one reference until
// RecordDestroy; every RecordOpen adds one. Storage is released on the last drop.
type recordObj struct {
	name string
	data any
	refs int
	open map[RecordID]struct{}
}

// RecordCreate publishes data under name.
func (h *Host) RecordCreate(name string, data any) Status {
	if name == "" {
		return StatusErrorParameter
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.names[name]; ok {
		return StatusErrorResource
	}
	h.names[name] = &recordObj{
		name: name,
		data: data,
		refs: 1,
		open: make(map[RecordID]struct{}),
	}
	logf("kernel: record %q create", name)
	return StatusOK
}

// RecordDestroy unpublishes name and drops the creator's reference.
// Existing holders keep the data until they close.
func (h *Host) RecordDestroy(name string) Status {
	h.mu.Lock()
	r, ok := h.names[name]
	if !ok {
		h.mu.Unlock()
		return StatusErrorParameter
	}
	delete(h.names, name)
	closer := h.unrefLocked(r)
	h.mu.Unlock()

	finalize(r.name, closer)
	return StatusOK
}

// RecordOpen takes a reference to the record published under name.
func (h *Host) RecordOpen(name string) (RecordID, any, Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.names[name]
	if !ok {
		return 0, nil, StatusErrorResource
	}
	r.refs++
	id := RecordID(h.records.put(r))
	r.open[id] = struct{}{}
	logf("kernel: record %q open id=%d refs=%d", name, id, r.refs)
	return id, r.data, StatusOK
}

// RecordClose drops one reference taken by RecordOpen.
func (h *Host) RecordClose(id RecordID) Status {
	h.mu.Lock()
	r, ok := h.records.get(uint32(id))
	if !ok {
		h.mu.Unlock()
		return StatusErrorParameter
	}
	h.records.drop(uint32(id))
	delete(r.open, id)
	closer := h.unrefLocked(r)
	h.mu.Unlock()

	finalize(r.name, closer)
	return StatusOK
}

// RecordExists reports whether name is currently published.
func (h *Host) RecordExists(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.names[name]
	return ok
}

// RecordHolders returns the live reference count for name, including the
// creator's, or 0 if name is not published.
func (h *Host) RecordHolders(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.names[name]; ok {
		return r.refs
	}
	return 0
}

// unrefLocked drops one reference and returns the data's closer when the
// last reference is gone.
func (h *Host) unrefLocked(r *recordObj) io.Closer {
	r.refs--
	if r.refs > 0 {
		return nil
	}
	logf("kernel: record %q released", r.name)
	c, _ := r.data.(io.Closer)
	r.data = nil
	return c
}

func finalize(name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		glog.Warningf("kernel: record %q close: %v", name, err)
	}
}
