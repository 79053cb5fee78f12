package silta

import "strings"

type (
	// Controller is one GUI-style control declared in the descriptor text,
	// e.g. a slider or a combobox bound to a control-rate channel. It is
	// created by the csd parser, immutable once returned, and consumed once
	// at engine-initialization time to seed control channel values.
	Controller struct {
		// Kind is the full declaring token from the descriptor, e.g.
		// "hslider80"; matching against the known control kinds is by
		// substring.
		Kind string `yaml:"kind"`

		// Channel is the control-rate channel identifier the control is
		// bound to.
		Channel string `yaml:"channel"`

		// Text is the free-form label or, for comboboxes, the
		// comma-separated option list.
		Text string `yaml:"text,omitempty"`

		// Caption is the display caption.
		Caption string `yaml:"caption,omitempty"`

		Min   float64 `yaml:"min"`
		Max   float64 `yaml:"max"`
		Value float64 `yaml:"value"`

		// Skew and Increment come from the optional fourth and fifth range
		// tokens; zero when the descriptor leaves them unset.
		Skew      float64 `yaml:"skew,omitempty"`
		Increment float64 `yaml:"increment,omitempty"`
	}
)

// Control kinds recognized in descriptor text. A declaring token matches a
// kind if it contains the kind as a substring, so "hslider80" is a slider.
const (
	KindSlider   = "slider"
	KindButton   = "button"
	KindCheckbox = "checkbox"
	KindGroupbox = "groupbox"
	KindForm     = "form"
	KindCombobox = "combobox"
)

// IsCombobox reports whether the controller declares a combobox. Comboboxes
// are special in that their descriptor values are one-based but the internal
// representation is zero-based.
func (c *Controller) IsCombobox() bool {
	return strings.Contains(c.Kind, KindCombobox)
}
