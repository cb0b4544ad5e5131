package model

import "fmt"

// SlotRange is an inclusive range of spectrum slot indexes [First, Last].
type SlotRange struct {
	First int `json:"first" yaml:"first"`
	Last  int `json:"last" yaml:"last"`
}

// Width returns the number of slots covered by r, or 0 when r is empty.
func (r SlotRange) Width() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// Overlaps reports whether r and o share at least one slot.
func (r SlotRange) Overlaps(o SlotRange) bool {
	return r.Width() > 0 && o.Width() > 0 && r.First <= o.Last && o.First <= r.Last
}

func (r SlotRange) String() string {
	return fmt.Sprintf("[%d..%d]", r.First, r.Last)
}
