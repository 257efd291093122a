package asset

// insertAt returns ids with id inserted at position pos.
//
// The position is clamped to [0, len(ids)]: negative positions insert at the
// head, positions past the end append. If id is already present it is moved,
// not duplicated.
func insertAt(ids []string, id string, pos int) []string {
	ids = remove(ids, id)

	if pos < 0 {
		pos = 0
	}
	if pos > len(ids) {
		pos = len(ids)
	}

	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:pos]...)
	out = append(out, id)
	out = append(out, ids[pos:]...)
	return out
}

// remove returns ids without id. Removing an absent id is a no-op.
func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
