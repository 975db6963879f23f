// Package transitions implements the cut-point effect engine: a closed table
// of parametrized effect generators keyed by type, auto-selection for clip
// boundaries and silence cuts, and validation of transition lists.
package transitions

import (
	"fmt"
	"math"
)

// Type identifies one transition effect family.
type Type string

const (
	TypeSnapZoom     Type = "snap-zoom"
	TypeFlash        Type = "flash"
	TypeShake        Type = "shake"
	TypeGlitch       Type = "glitch"
	TypePanLeft      Type = "pan-left"
	TypePanRight     Type = "pan-right"
	TypeSpeedRamp    Type = "speed-ramp"
	TypeZoomPunch    Type = "zoom-punch"
	TypeChannelSplit Type = "channel-split"
	TypeSpinZoom     Type = "spin-zoom"
	TypeBounce       Type = "bounce"
	TypePushSlide    Type = "push-slide"
	TypeLensWarp     Type = "lens-warp"
	TypeStrobe       Type = "strobe"
	TypeColorFlash   Type = "color-flash"
)

// Effect is the per-frame visual state a transition applies to the active clip.
type Effect struct {
	Transform string   `json:"transform,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	Filter    string   `json:"filter,omitempty"`
}

// OverlayEffect is a full-frame flash drawn above the clip for strobe-style
// transitions.
type OverlayEffect struct {
	Visible         bool    `json:"visible"`
	BackgroundColor string  `json:"background_color,omitempty"`
	Opacity         float64 `json:"opacity,omitempty"`
}

// Definition couples a transition type with its pure evaluators. Apply is
// always present; Overlay is nil for effects with no full-frame flash.
type Definition struct {
	Type    Type                                                                   `json:"type"`
	Label   string                                                                 `json:"label"`
	Apply   func(localFrame, durationFrames int, intensity float64) Effect         `json:"-"`
	Overlay func(localFrame, durationFrames int, intensity float64) *OverlayEffect `json:"-"`
}

// progress maps a local frame into [0,1] across the transition window.
func progress(localFrame, durationFrames int) float64 {
	if durationFrames <= 0 {
		return 0
	}
	p := float64(localFrame) / float64(durationFrames)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// tri is a triangle peaking at the window midpoint: 0 at p=0 and p=1, 1 at p=0.5.
func tri(p float64) float64 {
	return 1 - math.Abs(2*p-1)
}

// frameHash is the arithmetic pseudo-randomness used by jitter effects:
// deterministic for identical inputs, cosmetic rather than cryptographic.
func frameHash(frame int) float64 {
	x := math.Sin(float64(frame)*12.9898) * 43758.5453
	return x - math.Floor(x)
}

func scale(s float64) string       { return fmt.Sprintf("scale(%.4f)", s) }
func blurPx(b float64) string      { return fmt.Sprintf("blur(%.2fpx)", b) }
func translateX(px float64) string { return fmt.Sprintf("translateX(%.2fpx)", px) }

// definitions is the closed, substitutable effect table. The presentation
// layer and the assembler both read it, so offered choices and rendered
// output never diverge.
var definitions = []Definition{
	{
		Type:  TypeSnapZoom,
		Label: "Snap Zoom",
		Apply: func(f, d int, i float64) Effect {
			// scale 1 -> 1+0.05*i -> 1, symmetric about the midpoint
			return Effect{Transform: scale(1 + 0.05*i*tri(progress(f, d)))}
		},
	},
	{
		Type:  TypeFlash,
		Label: "Flash",
		Apply: func(f, d int, i float64) Effect {
			return Effect{Filter: fmt.Sprintf("brightness(%.3f)", 1+0.3*i*tri(progress(f, d)))}
		},
		Overlay: func(f, d int, i float64) *OverlayEffect {
			op := 0.8 * i * tri(progress(f, d))
			return &OverlayEffect{Visible: op > 0.01, BackgroundColor: "#ffffff", Opacity: op}
		},
	},
	{
		Type:  TypeShake,
		Label: "Shake",
		Apply: func(f, d int, i float64) Effect {
			p := progress(f, d)
			// Damped, frequency-modulated horizontal oscillation.
			amp := 14 * i * (1 - p)
			offset := amp * math.Sin(float64(f)*(1.8+2.4*p))
			return Effect{Transform: translateX(offset)}
		},
	},
	{
		Type:  TypeGlitch,
		Label: "Glitch",
		Apply: func(f, d int, i float64) Effect {
			jx := (frameHash(f)*2 - 1) * 10 * i
			jy := (frameHash(f+97)*2 - 1) * 6 * i
			return Effect{Transform: fmt.Sprintf("translate(%.2fpx, %.2fpx)", jx, jy)}
		},
		Overlay: func(f, d int, i float64) *OverlayEffect {
			// Periodic color-channel flashes every third frame.
			if f%3 != 0 {
				return &OverlayEffect{Visible: false}
			}
			colors := []string{"#ff0040", "#00ff9d", "#0040ff"}
			return &OverlayEffect{
				Visible:         true,
				BackgroundColor: colors[(f/3)%len(colors)],
				Opacity:         0.18 * i,
			}
		},
	},
	{
		Type:  TypePanLeft,
		Label: "Pan Left",
		Apply: func(f, d int, i float64) Effect {
			p := progress(f, d)
			return Effect{
				Transform: translateX(-60 * i * math.Sin(p*math.Pi)),
				Filter:    blurPx(5 * i * tri(p)),
			}
		},
	},
	{
		Type:  TypePanRight,
		Label: "Pan Right",
		Apply: func(f, d int, i float64) Effect {
			p := progress(f, d)
			return Effect{
				Transform: translateX(60 * i * math.Sin(p*math.Pi)),
				Filter:    blurPx(5 * i * tri(p)),
			}
		},
	},
	{
		Type:  TypeSpeedRamp,
		Label: "Speed Ramp",
		Apply: func(f, d int, i float64) Effect {
			t := tri(progress(f, d))
			return Effect{Transform: scale(1 + 0.08*i*t), Filter: blurPx(8 * i * t)}
		},
	},
	{
		Type:  TypeZoomPunch,
		Label: "Zoom Punch",
		Apply: func(f, d int, i float64) Effect {
			t := tri(progress(f, d))
			return Effect{Transform: scale(1 + 0.18*i*t), Filter: blurPx(10 * i * t)}
		},
	},
	{
		Type:  TypeChannelSplit,
		Label: "Channel Split",
		Apply: func(f, d int, i float64) Effect {
			t := tri(progress(f, d))
			return Effect{
				Transform: translateX(4 * i * t * math.Sin(float64(f)*2.2)),
				Filter:    fmt.Sprintf("saturate(%.3f)", 1+0.6*i*t),
			}
		},
		Overlay: func(f, d int, i float64) *OverlayEffect {
			color := "#ff0000"
			if f%2 == 0 {
				color = "#00ffff"
			}
			return &OverlayEffect{
				Visible:         true,
				BackgroundColor: color,
				Opacity:         0.12 * i * tri(progress(f, d)),
			}
		},
	},
	{
		Type:  TypeSpinZoom,
		Label: "Spin Zoom",
		Apply: func(f, d int, i float64) Effect {
			p := progress(f, d)
			t := tri(p)
			return Effect{
				Transform: fmt.Sprintf("rotate(%.2fdeg) %s", 8*i*(2*p-1)*t, scale(1+0.1*i*t)),
			}
		},
	},
	{
		Type:  TypeBounce,
		Label: "Bounce",
		Apply: func(f, d int, i float64) Effect {
			p := progress(f, d)
			// Damped overshoot, back to rest at both window edges.
			s := 1 + 0.12*i*math.Sin(p*math.Pi)*math.Cos(4*math.Pi*p)*math.Exp(-2*p)
			return Effect{Transform: scale(s)}
		},
	},
	{
		Type:  TypePushSlide,
		Label: "Push Slide",
		Apply: func(f, d int, i float64) Effect {
			p := progress(f, d)
			// Slide out before the cut, in after it.
			return Effect{
				Transform: translateX(90 * i * (2*p - 1) * tri(p)),
				Filter:    blurPx(4 * i * tri(p)),
			}
		},
	},
	{
		Type:  TypeLensWarp,
		Label: "Lens Warp",
		Apply: func(f, d int, i float64) Effect {
			t := tri(progress(f, d))
			return Effect{
				Transform: fmt.Sprintf("%s skewX(%.2fdeg)", scale(1+0.06*i*t), 3*i*t),
				Filter:    blurPx(2 * i * t),
			}
		},
	},
	{
		Type:  TypeStrobe,
		Label: "Strobe",
		Apply: func(f, d int, i float64) Effect {
			return Effect{}
		},
		Overlay: func(f, d int, i float64) *OverlayEffect {
			return &OverlayEffect{
				Visible:         f%2 == 0,
				BackgroundColor: "#ffffff",
				Opacity:         0.7 * i,
			}
		},
	},
	{
		Type:  TypeColorFlash,
		Label: "Color Flash",
		Apply: func(f, d int, i float64) Effect {
			return Effect{Filter: fmt.Sprintf("hue-rotate(%.1fdeg)", 40*i*tri(progress(f, d)))}
		},
		Overlay: func(f, d int, i float64) *OverlayEffect {
			colors := []string{"#ff2d78", "#ffd23f", "#2de1ff"}
			return &OverlayEffect{
				Visible:         true,
				BackgroundColor: colors[(f/4)%len(colors)],
				Opacity:         0.6 * i * tri(progress(f, d)),
			}
		},
	},
}

// Definitions returns the effect table in stable order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup resolves a transition type to its definition.
func Lookup(t Type) (Definition, bool) {
	for _, def := range definitions {
		if def.Type == t {
			return def, true
		}
	}
	return Definition{}, false
}

// Known reports whether t names an effect in the table.
func Known(t Type) bool {
	_, ok := Lookup(t)
	return ok
}
