package overlay

import "fmt"

// Animation is a named pair of pure enter/exit evaluators. Enter progress
// runs 0 (just appeared) to 1 (settled); exit progress runs 0 (still settled)
// to 1 (gone).
type Animation struct {
	Name  string                `json:"name"`
	Label string                `json:"label"`
	Enter func(p float64) Style `json:"-"`
	Exit  func(p float64) Style `json:"-"`
}

// animations is the closed table shared by the presentation layer (choice
// list) and the evaluator, so user selection and rendered output never
// diverge.
var animations = []Animation{
	{
		Name:  "fade",
		Label: "Fade",
		Enter: func(p float64) Style { return Style{Opacity: opacity(p)} },
		Exit:  func(p float64) Style { return Style{Opacity: opacity(1 - p)} },
	},
	{
		Name:  "slide-up",
		Label: "Slide Up",
		Enter: func(p float64) Style {
			return Style{Opacity: opacity(p), Transform: translateY(40 * (1 - p))}
		},
		Exit: func(p float64) Style {
			return Style{Opacity: opacity(1 - p), Transform: translateY(-40 * p)}
		},
	},
	{
		Name:  "slide-down",
		Label: "Slide Down",
		Enter: func(p float64) Style {
			return Style{Opacity: opacity(p), Transform: translateY(-40 * (1 - p))}
		},
		Exit: func(p float64) Style {
			return Style{Opacity: opacity(1 - p), Transform: translateY(40 * p)}
		},
	},
	{
		Name:  "pop",
		Label: "Pop",
		Enter: func(p float64) Style {
			// Overshoot to 1.08 at 70% progress, then settle.
			scale := 0.6 + 0.48*p
			if p > 0.7 {
				scale = 1.08 - 0.08*(p-0.7)/0.3
			}
			return Style{Opacity: opacity(p), Transform: fmt.Sprintf("scale(%.3f)", scale)}
		},
		Exit: func(p float64) Style {
			return Style{Opacity: opacity(1 - p), Transform: fmt.Sprintf("scale(%.3f)", 1-0.4*p)}
		},
	},
	{
		Name:  "blur-in",
		Label: "Blur In",
		Enter: func(p float64) Style {
			return Style{Opacity: opacity(p), Filter: fmt.Sprintf("blur(%.1fpx)", 8*(1-p))}
		},
		Exit: func(p float64) Style {
			return Style{Opacity: opacity(1 - p), Filter: fmt.Sprintf("blur(%.1fpx)", 8*p)}
		},
	},
	{
		Name:  "none",
		Label: "None",
		Enter: func(p float64) Style { return Style{} },
		Exit:  func(p float64) Style { return Style{} },
	},
}

// Animations returns the registry in stable order for the presentation layer.
func Animations() []Animation {
	out := make([]Animation, len(animations))
	copy(out, animations)
	return out
}

func lookup(name string) (Animation, bool) {
	for _, a := range animations {
		if a.Name == name {
			return a, true
		}
	}
	return Animation{}, false
}
