// Package csd extracts controller declarations and audio channel names from
// line-oriented CSD descriptor text, without compiling or executing it. The
// parser runs at load time only and is not deadline-bound.
package csd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vsariola/silta"
)

// ParseError is a malformed attribute or numeric token on one descriptor
// line. The parse continues past it; the offending line is retained for
// diagnostics.
type ParseError struct {
	LineNumber int    // 1-based
	Line       string // the offending line, verbatim
	Message    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.LineNumber, e.Message, e.Line)
}

var controlKinds = []string{
	silta.KindSlider,
	silta.KindButton,
	silta.KindCheckbox,
	silta.KindGroupbox,
	silta.KindForm,
	silta.KindCombobox,
}

// ParseControllers scans the descriptor text line by line and returns the
// declared controllers, in order. Scanning stops at the first line containing
// a closing tag marker "</". Lines with malformed attributes are skipped; the
// returned error joins one *ParseError per such line, with the successfully
// parsed controllers still returned. Empty text yields no controllers and a
// nil error.
func ParseControllers(text string) ([]silta.Controller, error) {
	var (
		controllers []silta.Controller
		errs        []error
	)
	for num, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "</") {
			break
		}
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, ";") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) == 0 || !declaresControl(fields[0]) {
			continue
		}
		c, err := parseControllerLine(fields[0], line)
		if err != nil {
			if perr, ok := err.(*ParseError); ok {
				perr.LineNumber = num + 1
			}
			errs = append(errs, err)
			continue
		}
		controllers = append(controllers, c)
	}
	return controllers, errors.Join(errs...)
}

func declaresControl(token string) bool {
	for _, kind := range controlKinds {
		if strings.Contains(token, kind) {
			return true
		}
	}
	return false
}

// parseControllerLine extracts the keyword(value) attributes of a single
// declaration. Attribute order within the line does not matter; they are
// applied in a fixed order so that an explicit range overrides the
// combobox-seeded one and an explicit value overrides the seeded zero.
func parseControllerLine(token, line string) (silta.Controller, error) {
	c := silta.Controller{Kind: token}
	if caption, ok, err := attribute(line, "caption"); err != nil {
		return c, err
	} else if ok {
		c.Caption = stripQuotes(caption)
	}
	if text, ok, err := attribute(line, "text"); err != nil {
		return c, err
	} else if ok {
		c.Text = stripQuotes(text)
		if c.IsCombobox() {
			// the option list defines the value range: one-based option
			// indices, value not yet chosen
			c.Value = 0
			c.Min = 1
			c.Max = float64(len(strings.Split(c.Text, ",")))
		}
	}
	if channel, ok, err := attribute(line, "channel"); err != nil {
		return c, err
	} else if ok {
		c.Channel = stripQuotes(channel)
	}
	if rng, ok, err := attribute(line, "range"); err != nil {
		return c, err
	} else if ok {
		if err := parseRange(&c, rng, line); err != nil {
			return c, err
		}
	}
	if value, ok, err := attribute(line, "value"); err != nil {
		return c, err
	} else if ok {
		v, err := parseNumber(value)
		if err != nil {
			return c, &ParseError{Line: line, Message: fmt.Sprintf("bad value attribute %q", value)}
		}
		if c.IsCombobox() {
			v-- // descriptor values are one-based, internal representation zero-based
		}
		c.Value = v
	}
	return c, nil
}

// attribute returns the substring between "key(" and the next ")". This is
// deliberately delimiter scanning, not balanced-parenthesis parsing; nested
// parentheses are not supported by the descriptor format.
func attribute(line, key string) (string, bool, error) {
	idx := strings.Index(line, key+"(")
	if idx < 0 {
		return "", false, nil
	}
	rest := line[idx+len(key)+1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return "", false, &ParseError{Line: line, Message: fmt.Sprintf("unterminated %s attribute", key)}
	}
	return rest[:end], true, nil
}

// parseRange fills value, min and max from the three required numeric range
// tokens, plus skew and increment when the descriptor carries the optional
// fourth and fifth tokens.
func parseRange(c *silta.Controller, rng, line string) error {
	tokens := strings.Split(rng, ",")
	if len(tokens) < 3 {
		return &ParseError{Line: line, Message: fmt.Sprintf("range needs 3 values, got %d", len(tokens))}
	}
	values := make([]float64, len(tokens))
	for i, token := range tokens {
		v, err := parseNumber(token)
		if err != nil {
			return &ParseError{Line: line, Message: fmt.Sprintf("bad range token %q", token)}
		}
		values[i] = v
	}
	c.Value, c.Min, c.Max = values[0], values[1], values[2]
	if len(values) > 3 {
		c.Skew = values[3]
	}
	if len(values) > 4 {
		c.Increment = values[4]
	}
	return nil
}

// parseNumber parses one numeric descriptor token: internal whitespace is
// stripped and a leading "." gets a "0" prepended, so " .5" parses as 0.5.
func parseNumber(token string) (float64, error) {
	token = strings.Join(strings.Fields(token), "")
	if strings.HasPrefix(token, ".") {
		token = "0" + token
	}
	return strconv.ParseFloat(token, 64)
}

func stripQuotes(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ParseAudioChannelNames returns the names of the audio-rate channels the
// descriptor publishes via chnset, deduplicated, in order of first
// appearance. Only chnset calls whose first argument follows the audio-rate
// naming convention (an "a" or "ga" prefixed variable) declare audio
// channels; control-rate chnset calls are ignored.
func ParseAudioChannelNames(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, ";") {
			continue
		}
		idx := strings.Index(line, "chnset")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("chnset"):]
		if len(rest) < 1 {
			continue
		}
		rest = rest[1:] // the separator character after the opcode token
		args := strings.Split(rest, ",")
		if len(args) < 2 {
			continue
		}
		variable := strings.TrimSpace(args[0])
		if !strings.HasPrefix(variable, "a") && !strings.HasPrefix(variable, "ga") {
			continue
		}
		name := stripQuotes(args[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
