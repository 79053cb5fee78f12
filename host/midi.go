package host

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/vsariola/silta"
)

type (
	// ControllerMap routes MIDI control change messages to the engine's
	// control-rate channels. Channel-bound controllers from the descriptor
	// are assigned consecutive CC numbers in declaration order; Bind can
	// override the assignment. The 0..127 CC value range is rescaled to the
	// controller's min..max range.
	//
	// SetChannel is not deadline-bound, so the map can be driven directly
	// from a MIDI input callback.
	ControllerMap struct {
		engine  silta.Engine
		targets map[uint8]ccTarget
	}

	ccTarget struct {
		channel  string
		min, max float64
	}
)

// firstMappedCC is the first CC number handed out to descriptor controllers;
// CC 0 (bank select) is left alone.
const firstMappedCC = 1

func NewControllerMap(engine silta.Engine, controllers []silta.Controller) *ControllerMap {
	m := &ControllerMap{engine: engine, targets: make(map[uint8]ccTarget)}
	cc := uint8(firstMappedCC)
	for _, c := range controllers {
		if c.Channel == "" {
			continue
		}
		if cc > 127 {
			break
		}
		m.targets[cc] = ccTarget{channel: c.Channel, min: c.Min, max: c.Max}
		cc++
	}
	return m
}

// Bind maps one CC number to a control channel explicitly.
func (m *ControllerMap) Bind(cc uint8, channel string, min, max float64) {
	m.targets[cc] = ccTarget{channel: channel, min: min, max: max}
}

// HandleMessage forwards one MIDI message to the engine; messages other than
// control changes, and control changes with no bound channel, are ignored.
func (m *ControllerMap) HandleMessage(msg midi.Message) {
	var channel, cc, value uint8
	if !msg.GetControlChange(&channel, &cc, &value) {
		return
	}
	target, ok := m.targets[cc]
	if !ok {
		return
	}
	scaled := target.min + (target.max-target.min)*float64(value)/127
	m.engine.SetChannel(target.channel, float32(scaled))
}
