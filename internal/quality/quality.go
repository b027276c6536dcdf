// Package quality holds the audio quality presets clients are steered
// towards from the settings UI.
package quality

import "sync"

// Preset is a named audio quality preset for client guidance.
type Preset struct {
	Label       string `json:"label"`
	SampleRate  int    `json:"sample_rate"`
	BitrateKbps int    `json:"bitrate_kbps"`
}

// State is a stateful selector over the preset ladder.
type State struct {
	mu      sync.Mutex
	presets []Preset
	index   int
}

func NewState() *State {
	return &State{
		presets: []Preset{
			{Label: "Low", SampleRate: 16000, BitrateKbps: 16},
			{Label: "Balanced", SampleRate: 16000, BitrateKbps: 24},
			{Label: "High", SampleRate: 24000, BitrateKbps: 32},
		},
		index: 1,
	}
}

// Current returns the selected preset.
func (s *State) Current() Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presets[s.index]
}

// Increase moves to the next higher preset, clamping at the top.
func (s *State) Increase() Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < len(s.presets)-1 {
		s.index++
	}
	return s.presets[s.index]
}

// Decrease moves to the next lower preset, clamping at the bottom.
func (s *State) Decrease() Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.presets[s.index]
}

// SnapshotView is the current preset plus the available choices.
type SnapshotView struct {
	Current Preset   `json:"current"`
	Presets []Preset `json:"presets"`
}

func (s *State) Snapshot() SnapshotView {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets := make([]Preset, len(s.presets))
	copy(presets, s.presets)
	return SnapshotView{
		Current: s.presets[s.index],
		Presets: presets,
	}
}
