package model

// TruckRef identifies a selectable truck from the registry.
type TruckRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Registry is the document listing every truck that can be inspected.
type Registry struct {
	Trucks []TruckRef `json:"trucks"`
}

// Section is a named group of checklist items.
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Definition is the checklist for one truck.
type Definition struct {
	Sections []Section `json:"sections"`
}

// ItemCount returns the number of items across all sections.
func (d Definition) ItemCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Items)
	}
	return n
}
