package compare

import (
	"errors"

	"github.com/terra-clan/compare-engine/internal/models"
)

// Common errors
var (
	ErrProductNotFound = errors.New("product not found")
	ErrAlreadySelected = errors.New("product already selected in another slot")
	ErrInvalidSlot     = errors.New("invalid slot index")
	ErrFilteredOut     = errors.New("product does not match the active type filter")
	ErrPickerClosed    = errors.New("product picker is not open")
)

// MinSlots is the floor length of the selection
const MinSlots = 2

// Resolver looks products up by ID; *catalog.Catalog satisfies it
type Resolver interface {
	Get(id int) *models.Product
}

// State is the comparison state of one client: the ordered slots, the active
// type filter and the two modals. It is not safe for concurrent use; callers
// serialize access.
type State struct {
	slots      []*models.Product
	typeFilter string

	Picker    Picker
	QuickView QuickView
}

// NewState returns an empty selection with MinSlots empty slots
func NewState() *State {
	return &State{
		slots:      make([]*models.Product, MinSlots),
		typeFilter: models.FilterAll,
	}
}

// Slots returns a copy of the slots; nil entries are empty slots
func (s *State) Slots() []*models.Product {
	out := make([]*models.Product, len(s.slots))
	copy(out, s.slots)
	return out
}

// Selected returns the filled slots in order
func (s *State) Selected() []*models.Product {
	var out []*models.Product
	for _, p := range s.slots {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// TypeFilter returns the active type filter
func (s *State) TypeFilter() string {
	return s.typeFilter
}

// SlotOf returns the slot holding product id, or -1
func (s *State) SlotOf(id int) int {
	for i, p := range s.slots {
		if p != nil && p.ID == id {
			return i
		}
	}
	return -1
}

// OpenSlot makes index the picker target and opens the picker.
// An index at or past the end targets a new appended slot.
func (s *State) OpenSlot(index int) error {
	if index < 0 {
		return ErrInvalidSlot
	}
	s.Picker.open(index)
	return nil
}

// Choose places product id into slotIndex and closes the picker. An index
// past the end appends the product after the last filled slot. Unknown,
// duplicate or filtered-out products leave the state untouched.
func (s *State) Choose(products Resolver, id, slotIndex int) error {
	if slotIndex < 0 {
		return ErrInvalidSlot
	}
	p := products.Get(id)
	if p == nil {
		return ErrProductNotFound
	}
	if !p.MatchesFilter(s.typeFilter) {
		return ErrFilteredOut
	}
	if slotIndex >= len(s.slots) {
		slotIndex = s.lastFilled() + 1
	}
	if at := s.SlotOf(id); at >= 0 && at != slotIndex {
		return ErrAlreadySelected
	}

	if slotIndex >= len(s.slots) {
		s.slots = append(s.slots, p)
	} else {
		s.slots[slotIndex] = p
	}
	s.normalize()
	s.Picker.Close()
	return nil
}

// Remove deletes the slot at index and shifts later slots left.
// It reports whether anything changed; out-of-range indexes are a no-op.
func (s *State) Remove(index int) bool {
	if index < 0 || index >= len(s.slots) {
		return false
	}
	s.slots = append(s.slots[:index], s.slots[index+1:]...)
	s.normalize()
	return true
}

// ApplyTypeFilter sets the filter and empties any slot whose product no
// longer matches it.
func (s *State) ApplyTypeFilter(filter string) {
	if filter == "" {
		filter = models.FilterAll
	}
	s.typeFilter = filter
	for i, p := range s.slots {
		if p != nil && !p.MatchesFilter(filter) {
			s.slots[i] = nil
		}
	}
	s.normalize()
}

// normalize keeps exactly one empty slot after the last filled slot and at
// least MinSlots slots overall.
func (s *State) normalize() {
	last := s.lastFilled()
	s.slots = s.slots[:last+1]
	s.slots = append(s.slots, nil)
	for len(s.slots) < MinSlots {
		s.slots = append(s.slots, nil)
	}
}

func (s *State) lastFilled() int {
	last := -1
	for i, p := range s.slots {
		if p != nil {
			last = i
		}
	}
	return last
}
