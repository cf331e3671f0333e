package engine

// NumModes is the number of entries in the routing mode table.
const NumModes = 12

// ModeConfig describes one routing mode: which playback heads contribute
// to the echo sum and whether the spring reverb is in circuit.
type ModeConfig struct {
	Heads  [3]bool
	Reverb bool
}

// modeTable is the fixed head/reverb routing, mirroring the selector of a
// classic three-head tape echo. Read-only at run time.
var modeTable = [NumModes]ModeConfig{
	{Heads: [3]bool{true, false, false}, Reverb: false}, // head 1
	{Heads: [3]bool{false, true, false}, Reverb: false}, // head 2
	{Heads: [3]bool{false, false, true}, Reverb: false}, // head 3
	{Heads: [3]bool{true, true, false}, Reverb: false},  // heads 1+2
	{Heads: [3]bool{true, false, true}, Reverb: false},  // heads 1+3
	{Heads: [3]bool{false, true, true}, Reverb: false},  // heads 2+3
	{Heads: [3]bool{true, true, true}, Reverb: false},   // all heads
	{Heads: [3]bool{true, false, false}, Reverb: true},  // head 1 + reverb
	{Heads: [3]bool{false, true, false}, Reverb: true},  // head 2 + reverb
	{Heads: [3]bool{false, false, true}, Reverb: true},  // head 3 + reverb
	{Heads: [3]bool{true, true, true}, Reverb: true},    // all heads + reverb
	{Heads: [3]bool{false, false, false}, Reverb: true}, // reverb only
}

// ModeTable returns a copy of the routing table.
func ModeTable() [NumModes]ModeConfig {
	return modeTable
}

// Mode returns the configuration for the given mode index, clamped to the
// valid range.
func Mode(index int) ModeConfig {
	if index < 0 {
		index = 0
	}
	if index >= NumModes {
		index = NumModes - 1
	}
	return modeTable[index]
}

// ActiveHeads returns how many heads the mode sums.
func (m ModeConfig) ActiveHeads() int {
	n := 0
	for _, on := range m.Heads {
		if on {
			n++
		}
	}
	return n
}
