package replay

// Close releases the records held by the table. Later calls fail with
// ErrClosed, except Len, Cap, Stats and Close itself. Close is idempotent.
func (t *Table) Close() error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	t.store.Reset()
	t.alloc.Reset()
	t.tree.Reset()
	t.res.Reset()
	t.pending = nil
	return nil
}
