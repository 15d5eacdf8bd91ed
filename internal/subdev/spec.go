// Package subdev validates requested channel-to-frontend mappings
// against the device's wiring rules and programs the analog-frontend
// and DSP muxing they imply.
package subdev

import (
	"strings"

	"github.com/sdr-control/sdrc/internal/periph"
)

// Direction selects the receive or transmit signal path.
type Direction string

const (
	RX Direction = "rx"
	TX Direction = "tx"
)

// Valid reports whether d is one of the two defined directions.
func (d Direction) Valid() bool {
	return d == RX || d == TX
}

// Pair names one physical signal path: a daughterboard slot and a
// subdevice (frontend) on it.
type Pair struct {
	DB string
	SD string
}

func (p Pair) String() string {
	return p.DB + ":" + p.SD
}

// Spec is an ordered channel-to-path mapping, at most two entries. The
// position in the slice is the logical channel index.
type Spec []Pair

// ParseSpec parses the "A:0 B:0" markup form. A pair without a colon
// names the daughterboard only and leaves the subdevice name empty
// until frontend resolution fills it with the board's sole frontend.
func ParseSpec(markup string) (Spec, error) {
	var spec Spec
	for _, tok := range strings.Fields(markup) {
		db, sd, _ := strings.Cut(tok, ":")
		if db == "" {
			return nil, periph.ConfigErrorf("bad subdev pair %q in %q", tok, markup)
		}
		spec = append(spec, Pair{DB: db, SD: sd})
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// Validate enforces the wiring-shape rules: at most two channels; one
// channel must sit on slot A or B; two channels must occupy the
// distinct pair {A,B} in either order. Duplicate slots cannot be
// programmed because the two channels would contend for one radio.
func (s Spec) Validate() error {
	switch len(s) {
	case 0:
		return nil
	case 1:
		if s[0].DB != "A" && s[0].DB != "B" {
			return periph.ConfigErrorf("subdev spec %q: daughterboard must be A or B", s.String())
		}
		return nil
	case 2:
		ok := (s[0].DB == "A" && s[1].DB == "B") ||
			(s[0].DB == "B" && s[1].DB == "A")
		if !ok {
			return periph.ConfigErrorf("subdev spec %q: two channels must use slots A and B", s.String())
		}
		return nil
	default:
		return periph.ConfigErrorf("subdev spec %q: at most 2 channels supported, got %d", s.String(), len(s))
	}
}
