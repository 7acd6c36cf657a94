package formula

import (
	"fmt"
	"strings"
)

// Switch is a tri-state option value. The zero value is Auto, which a
// recipe must resolve to On or Off against the target platform before
// the value can be used.
type Switch uint8

const (
	Auto Switch = iota
	On
	Off
)

// SwitchOf returns On for true and Off for false.
func SwitchOf(b bool) Switch {
	if b {
		return On
	}
	return Off
}

// ParseSwitch parses the textual forms accepted on the command line and in
// profiles: auto, true/false, on/off, enabled/disabled, yes/no and 1/0,
// case-insensitively.
func ParseSwitch(s string) (Switch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return Auto, nil
	case "true", "on", "enabled", "yes", "1":
		return On, nil
	case "false", "off", "disabled", "no", "0":
		return Off, nil
	}
	return Auto, fmt.Errorf("invalid switch value %q", s)
}

// ParseBool parses a two-state option value. It accepts the same forms as
// ParseSwitch except auto.
func ParseBool(s string) (bool, error) {
	v, err := ParseSwitch(s)
	if err != nil {
		return false, err
	}
	if v == Auto {
		return false, fmt.Errorf("option does not accept %q", s)
	}
	return v == On, nil
}

// IsAuto reports whether s still needs resolution.
func (s Switch) IsAuto() bool {
	return s == Auto
}

// Resolve returns the concrete value of s, using platformDefault for Auto.
func (s Switch) Resolve(platformDefault bool) bool {
	switch s {
	case On:
		return true
	case Off:
		return false
	}
	return platformDefault
}

func (s Switch) String() string {
	switch s {
	case On:
		return "True"
	case Off:
		return "False"
	}
	return "auto"
}

// MarshalText implements encoding.TextMarshaler.
func (s Switch) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Switch) UnmarshalText(text []byte) error {
	v, err := ParseSwitch(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// FormatBool renders b the way option values are written in identities.
func FormatBool(b bool) string {
	return SwitchOf(b).String()
}
