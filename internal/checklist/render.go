package checklist

import (
	"time"

	"truck-inspection-backend/internal/model"
	"truck-inspection-backend/internal/parse"
)

// Item is the in-memory state of one rendered checklist item.
type Item struct {
	Section        string     `json:"section"`
	Label          string     `json:"item"`
	Checked        bool       `json:"checked"`
	CheckTimestamp *time.Time `json:"checkTimestamp"`
	Notes          string     `json:"notes"`
}

// Section is a rendered section and its items, in definition order.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Checklist is the rendered form for one truck.
type Checklist struct {
	Sections []Section `json:"sections"`
}

// Render turns a definition into a blank checklist: every item unchecked,
// no timestamp, empty notes.
func Render(def model.Definition) *Checklist {
	c := &Checklist{Sections: make([]Section, 0, len(def.Sections))}
	for _, s := range def.Sections {
		section := Section{Title: s.Title, Items: make([]Item, 0, len(s.Items))}
		for _, label := range s.Items {
			section.Items = append(section.Items, Item{Section: s.Title, Label: label})
		}
		c.Sections = append(c.Sections, section)
	}
	return c
}

func (c *Checklist) find(section, item string) (*Item, error) {
	for i := range c.Sections {
		if c.Sections[i].Title != section {
			continue
		}
		for j := range c.Sections[i].Items {
			if c.Sections[i].Items[j].Label == item {
				return &c.Sections[i].Items[j], nil
			}
		}
	}
	return nil, &ItemError{Section: section, Item: item}
}

func (c *Checklist) each(fn func(*Item)) {
	for i := range c.Sections {
		for j := range c.Sections[i].Items {
			fn(&c.Sections[i].Items[j])
		}
	}
}

// Results folds the item states into the persisted shape. Every item is
// present: checked items are OK with their check time, the rest are Defect.
func (c *Checklist) Results() model.Results {
	results := make(model.Results, len(c.Sections))
	for _, section := range c.Sections {
		if results[section.Title] == nil {
			results[section.Title] = make(map[string]model.ItemResult, len(section.Items))
		}
		for _, item := range section.Items {
			res := model.ItemResult{Status: model.StatusDefect, Notes: item.Notes}
			if item.Checked {
				res.Status = model.StatusOK
				if item.CheckTimestamp != nil {
					ts := parse.FormatTimestamp(*item.CheckTimestamp)
					res.CheckTimestamp = &ts
				}
			}
			results[section.Title][item.Label] = res
		}
	}
	return results
}

func (c *Checklist) clone() *Checklist {
	if c == nil {
		return nil
	}
	out := &Checklist{Sections: make([]Section, len(c.Sections))}
	for i, s := range c.Sections {
		out.Sections[i] = Section{Title: s.Title, Items: append([]Item(nil), s.Items...)}
	}
	return out
}
