package render

// Accordion tracks which card, if any, is expanded. At most one is open.
type Accordion struct {
	id   int
	open bool
}

// OpenOn returns an accordion with id expanded.
func OpenOn(id int) Accordion {
	return Accordion{id: id, open: true}
}

// Toggle opens id and closes any other card, or closes id if it is the open
// one.
func (a Accordion) Toggle(id int) Accordion {
	if a.open && a.id == id {
		return Accordion{}
	}
	return OpenOn(id)
}

func (a Accordion) IsOpen(id int) bool {
	return a.open && a.id == id
}

// Current returns the open id.
func (a Accordion) Current() (int, bool) {
	return a.id, a.open
}
