package compositor

// Filter is one base look applied to the active clip for the whole
// composition. The CSS string is interpreted by the headless renderer.
type Filter struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	CSS   string `json:"css"`
}

// filters is the shared enumerable table: the presentation layer lists it
// and the assembler evaluates from it, so selection and output never diverge.
var filters = []Filter{
	{ID: "none", Label: "None", CSS: ""},
	{ID: "cinematic", Label: "Cinematic", CSS: "contrast(1.1) saturate(1.15) brightness(0.97)"},
	{ID: "vivid", Label: "Vivid", CSS: "saturate(1.4) contrast(1.05)"},
	{ID: "noir", Label: "Noir", CSS: "grayscale(1) contrast(1.2)"},
	{ID: "vintage", Label: "Vintage", CSS: "sepia(0.35) contrast(0.95) brightness(1.05)"},
	{ID: "cold", Label: "Cold", CSS: "hue-rotate(-12deg) saturate(0.9)"},
	{ID: "warm", Label: "Warm", CSS: "hue-rotate(10deg) saturate(1.1) brightness(1.03)"},
}

// Filters returns the filter registry in stable order.
func Filters() []Filter {
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}

// LookupFilter resolves a filter id; unknown ids resolve to the neutral look.
func LookupFilter(id string) Filter {
	for _, f := range filters {
		if f.ID == id {
			return f
		}
	}
	return filters[0]
}
