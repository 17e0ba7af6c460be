package achievement

import "fmt"

// Catalog is an immutable, ordered set of achievement definitions.
type Catalog struct {
	defs       []Definition
	byID       map[string]int
	byCategory map[Category][]string
}

func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs:       make([]Definition, 0, len(defs)),
		byID:       make(map[string]int, len(defs)),
		byCategory: make(map[Category][]string),
	}

	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("achievement %q has no id", d.Title)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement id %q", d.ID)
		}
		if d.Points < 0 {
			return nil, fmt.Errorf("achievement %q has negative points", d.ID)
		}

		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
		c.byCategory[d.Category] = append(c.byCategory[d.Category], d.ID)
	}

	return c, nil
}

var defaultDefinitions = []Definition{
	{ID: "first_injection", Title: "First Steps", Description: "Log your first injection", Icon: "syringe", Points: 10, Category: CategoryMilestone, Requirement: 1},
	{ID: "ten_injections", Title: "Getting Consistent", Description: "Log 10 injections", Icon: "target", Points: 25, Category: CategoryMilestone, Requirement: 10},
	{ID: "fifty_injections", Title: "Dedicated", Description: "Log 50 injections", Icon: "medal", Points: 50, Category: CategoryMilestone, Requirement: 50},
	{ID: "hundred_injections", Title: "Centurion", Description: "Log 100 injections", Icon: "trophy", Points: 100, Category: CategoryMilestone, Requirement: 100},
	{ID: "peptide_explorer", Title: "Peptide Explorer", Description: "Track 3 different peptides", Icon: "compass", Points: 20, Category: CategoryVariety, Requirement: 3},
	{ID: "peptide_connoisseur", Title: "Peptide Connoisseur", Description: "Track 5 different peptides", Icon: "flask", Points: 40, Category: CategoryVariety, Requirement: 5},
	{ID: "peptide_scientist", Title: "Peptide Scientist", Description: "Track 10 different peptides", Icon: "microscope", Points: 75, Category: CategoryVariety, Requirement: 10},
	{ID: "week_streak", Title: "Week Warrior", Description: "Log injections 7 days in a row", Icon: "flame", Points: 30, Category: CategoryConsistency, Requirement: 7},
	{ID: "month_streak", Title: "Monthly Master", Description: "Log injections 30 days in a row", Icon: "calendar", Points: 100, Category: CategoryConsistency, Requirement: 30},
	{ID: "night_owl", Title: "Night Owl", Description: "Log an injection between midnight and 5 AM", Icon: "moon", Points: 15, Category: CategorySpecial, Requirement: 1},
	{ID: "early_bird", Title: "Early Bird", Description: "Log an injection between 4 AM and 6 AM", Icon: "sunrise", Points: 15, Category: CategorySpecial, Requirement: 1},
	{ID: "calculator_used", Title: "Calculated", Description: "Use the reconstitution calculator", Icon: "calculator", Points: 5, Category: CategoryFeature, Requirement: 1},
	{ID: "stack_builder_used", Title: "Stack Architect", Description: "Build your first peptide stack", Icon: "layers", Points: 10, Category: CategoryFeature, Requirement: 1},
	{ID: "schedule_planner_used", Title: "Planner", Description: "Generate a titration schedule", Icon: "chart", Points: 10, Category: CategoryFeature, Requirement: 1},
}

var defaultCatalog = mustCatalog(defaultDefinitions)

func mustCatalog(defs []Definition) *Catalog {
	c, err := NewCatalog(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the process-wide catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func (c *Catalog) Get(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

func (c *Catalog) All() []Definition {
	return append([]Definition(nil), c.defs...)
}

func (c *Catalog) Len() int {
	return len(c.defs)
}

// InCategory returns definitions of one category in catalog order.
func (c *Catalog) InCategory(cat Category) []Definition {
	ids := c.byCategory[cat]
	out := make([]Definition, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.defs[c.byID[id]])
	}
	return out
}
