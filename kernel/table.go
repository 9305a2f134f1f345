package kernel

// table maps opaque handle IDs to kernel objects. The zero ID is never issued.
//
// Callers hold Host.mu.
type table[T any] struct {
	next  uint32
	slots map[uint32]T
}

func (t *table[T]) put(v T) uint32 {
	if t.slots == nil {
		t.slots = make(map[uint32]T)
	}
	for {
		t.next++
		if t.next == 0 {
			continue
		}
		if _, used := t.slots[t.next]; !used {
			break
		}
	}
	t.slots[t.next] = v
	return t.next
}

func (t *table[T]) get(id uint32) (T, bool) {
	v, ok := t.slots[id]
	return v, ok
}

func (t *table[T]) drop(id uint32) {
	delete(t.slots, id)
}

func (t *table[T]) len() int { return len(t.slots) }
