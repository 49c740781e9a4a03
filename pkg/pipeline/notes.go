package pipeline

import "slices"

// Note is a text annotation attached to one interval.
type Note struct {
	Item int
	Text string
}

// Notes is an ordered annotation collection. Every change bumps its revision
// so NotesPass can tell when its markers are stale.
type Notes struct {
	notes    []Note
	revision uint64
}

// NewNotes creates an empty collection.
func NewNotes() *Notes {
	return &Notes{}
}

// Add appends a note and returns its position.
func (n *Notes) Add(item int, text string) int {
	n.notes = append(n.notes, Note{Item: item, Text: text})
	n.revision++

	return len(n.notes) - 1
}

// Remove deletes the note at position i.
func (n *Notes) Remove(i int) {
	n.notes = slices.Delete(n.notes, i, i+1)
	n.revision++
}

// Clear removes every note.
func (n *Notes) Clear() {
	n.notes = n.notes[:0]
	n.revision++
}

// Len returns the number of notes.
func (n *Notes) Len() int {
	return len(n.notes)
}

// At returns the note at position i.
func (n *Notes) At(i int) Note {
	return n.notes[i]
}

// ForItem returns the positions of all notes attached to item.
func (n *Notes) ForItem(item int) []int {
	var out []int

	for i, note := range n.notes {
		if note.Item == item {
			out = append(out, i)
		}
	}

	return out
}

// Revision changes whenever the collection changes.
func (n *Notes) Revision() uint64 {
	return n.revision
}
