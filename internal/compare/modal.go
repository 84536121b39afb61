package compare

// Picker is the product-picker overlay. Only one target slot is tracked;
// opening it again retargets without error.
type Picker struct {
	Open       bool
	ActiveSlot int
	Search     string
}

func (p *Picker) open(slot int) {
	p.Open = true
	p.ActiveSlot = slot
}

// SetSearch updates the transient search text while the picker is open
func (p *Picker) SetSearch(term string) error {
	if !p.Open {
		return ErrPickerClosed
	}
	p.Search = term
	return nil
}

// Close hides the picker and clears its search text
func (p *Picker) Close() {
	p.Open = false
	p.ActiveSlot = 0
	p.Search = ""
}

// QuickView is the product detail overlay. It is independent of the picker
// and stacks above it when both are open.
type QuickView struct {
	Open      bool
	ProductID int
}

// Show opens the quick-view for product id
func (q *QuickView) Show(id int) {
	q.Open = true
	q.ProductID = id
}

// Close hides the quick-view
func (q *QuickView) Close() {
	q.Open = false
	q.ProductID = 0
}

// OpenQuickView resolves id and opens its quick-view
func (s *State) OpenQuickView(products Resolver, id int) error {
	if products.Get(id) == nil {
		return ErrProductNotFound
	}
	s.QuickView.Show(id)
	return nil
}
