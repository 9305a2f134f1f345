package dolphin

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ButthurtMax is the grumpiest the dolphin gets.
const ButthurtMax = 14

// stateVersion tags saved state.
const stateVersion = 1

// State is the persisted dolphin state.
type State struct {
	Version  uint8            `msgpack:"v"`
	Icounter uint32           `msgpack:"icounter"`
	Butthurt uint32           `msgpack:"butthurt"`
	Deeds    uint32           `msgpack:"deeds"`
	Day      int64            `msgpack:"day"`
	Daily    [appCount]uint32 `msgpack:"daily"`
}

// apply credits d on day and returns the points actually earned.
func (s *State) apply(d Deed, day int64) uint32 {
	if day != s.Day {
		s.Day = day
		s.Daily = [appCount]uint32{}
	}
	app := d.App()
	pts := d.Points()
	if room := DailyLimit - s.Daily[app]; pts > room {
		pts = room
	}
	s.Daily[app] += pts
	s.Icounter += pts
	s.Deeds++
	if s.Butthurt > 0 {
		s.Butthurt--
	}
	return pts
}

func (s *State) sulk() {
	if s.Butthurt < ButthurtMax {
		s.Butthurt++
	}
}

// Encode writes the state to w.
func (s *State) Encode(w io.Writer) error {
	s.Version = stateVersion
	b, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("dolphin: encode state: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// DecodeState reads state written by Encode.
func DecodeState(r io.Reader) (State, error) {
	var s State
	b, err := io.ReadAll(r)
	if err != nil {
		return s, fmt.Errorf("dolphin: read state: %w", err)
	}
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("dolphin: decode state: %w", err)
	}
	if s.Version != stateVersion {
		return State{}, fmt.Errorf("dolphin: state version %d, want %d", s.Version, stateVersion)
	}
	if s.Butthurt > ButthurtMax {
		s.Butthurt = ButthurtMax
	}
	return s, nil
}
