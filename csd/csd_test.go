package csd_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsariola/silta"
	"github.com/vsariola/silta/csd"
)

const exampleDescriptor = `form caption("Example") size(400, 300)
; a comment line that should be ignored
hslider80 bounds(0,0,60,14), channel("freq"), range(1, 0.1, 10), text("Frequency"), caption("Hz")
combobox1 channel("wave"), text("Sine,Square,Saw"), value(2)
checkbox bounds(10,10,12,12), channel("mute"), value(0)
</Cabbage>
slider channel("after"), range(0, 0, 1)
`

func TestParseControllers(t *testing.T) {
	controllers, err := csd.ParseControllers(exampleDescriptor)
	require.NoError(t, err)
	expected := []silta.Controller{
		{Kind: "form", Caption: "Example"},
		{Kind: "hslider80", Channel: "freq", Text: "Frequency", Caption: "Hz", Value: 1, Min: 0.1, Max: 10},
		{Kind: "combobox1", Channel: "wave", Text: "Sine,Square,Saw", Value: 1, Min: 1, Max: 3},
		{Kind: "checkbox", Channel: "mute"},
	}
	assert.Equal(t, expected, controllers)
}

func TestParseControllersIdempotent(t *testing.T) {
	first, err1 := csd.ParseControllers(exampleDescriptor)
	second, err2 := csd.ParseControllers(exampleDescriptor)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestParseControllersStopsAtClosingTag(t *testing.T) {
	controllers, err := csd.ParseControllers(exampleDescriptor)
	require.NoError(t, err)
	for _, c := range controllers {
		assert.NotEqual(t, "after", c.Channel, "controllers after the closing tag must not be parsed")
	}
}

func TestParseControllersEmptyText(t *testing.T) {
	controllers, err := csd.ParseControllers("")
	assert.NoError(t, err)
	assert.Empty(t, controllers)
}

func TestParseControllersComboboxRangeFromText(t *testing.T) {
	// without an explicit value, a combobox gets value 0 and a range
	// spanning the one-based option indices
	controllers, err := csd.ParseControllers(`combobox channel("osc"), text("A,B,C,D")`)
	require.NoError(t, err)
	require.Len(t, controllers, 1)
	assert.Equal(t, 0.0, controllers[0].Value)
	assert.Equal(t, 1.0, controllers[0].Min)
	assert.Equal(t, 4.0, controllers[0].Max)
}

func TestParseControllersRangeExtras(t *testing.T) {
	controllers, err := csd.ParseControllers(`rslider channel("cutoff"), range(.5, 0, 1, 0.25, .01)`)
	require.NoError(t, err)
	require.Len(t, controllers, 1)
	c := controllers[0]
	assert.Equal(t, 0.5, c.Value)
	assert.Equal(t, 0.0, c.Min)
	assert.Equal(t, 1.0, c.Max)
	assert.Equal(t, 0.25, c.Skew)
	assert.Equal(t, 0.01, c.Increment)
}

func TestParseControllersMalformedLines(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"unterminated attribute", `slider channel("freq"), range(0, 1, 2`},
		{"non-numeric range token", `slider channel("freq"), range(0, low, 2)`},
		{"non-numeric value", `button channel("go"), value(x)`},
		{"too few range tokens", `slider channel("freq"), range(0, 1)`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			controllers, err := csd.ParseControllers(tc.text)
			require.Error(t, err)
			assert.Empty(t, controllers)
			var perr *csd.ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, 1, perr.LineNumber)
		})
	}
}

func TestParseControllersKeepsWellFormedLines(t *testing.T) {
	text := "slider channel(\"good\"), range(0, 0, 1)\n" +
		"slider channel(\"bad\"), range(0, oops, 1)\n" +
		"slider channel(\"alsogood\"), range(1, 0, 2)\n"
	controllers, err := csd.ParseControllers(text)
	require.Error(t, err)
	require.Len(t, controllers, 2)
	assert.Equal(t, "good", controllers[0].Channel)
	assert.Equal(t, "alsogood", controllers[1].Channel)
}

func TestParseAudioChannelNames(t *testing.T) {
	text := `instr 1
    aSig oscili 0.5, p4, 1
    chnset aSig, "outL"
    chnset aSig, "outR"
    chnset kSig, "ctrl"
    chnset gaMaster, "master"
; chnset aGhost, "commented"
    chnset aSig, "outL"
endin
`
	names := csd.ParseAudioChannelNames(text)
	assert.Equal(t, []string{"outL", "outR", "master"}, names)
}

func TestParseAudioChannelNamesEmptyText(t *testing.T) {
	assert.Empty(t, csd.ParseAudioChannelNames(""))
}
