package pattrns

// Chord is an ordered set of notes meant to fire simultaneously.
// NewChord and NewChordFromIntervals set only each note's Key.
type Chord struct {
	Notes []Note
}

// chordIntervals is the closed synonym set named in the specification: the
// named chord qualities plus common sevenths and added-note chords, each
// given as semitone offsets from the root.
var chordIntervals = map[string][]int{
	"minor":     {0, 3, 7},
	"major":     {0, 4, 7},
	"minMajor":  {0, 3, 7, 11},
	"augmented": {0, 4, 8},
	"diminished": {0, 3, 6},
	"five":      {0, 7},
	"six":       {0, 4, 7, 9},
	"sixNine":   {0, 4, 7, 9, 14},
	"seven":     {0, 4, 7, 10},
	"nine":      {0, 4, 7, 10, 14},
	"eleven":    {0, 4, 7, 10, 14, 17},
	"maj7":      {0, 4, 7, 11},
	"m7":        {0, 3, 7, 10},
	"dim7":      {0, 3, 6, 9},
	"m7b5":      {0, 3, 6, 10},
	"add9":      {0, 4, 7, 14},
	"madd9":     {0, 3, 7, 14},
}

// NewChord builds a Chord from a root MIDI key and a chord mode name from
// the synonym set. Unknown names are a NameError.
func NewChord(rootKey int, mode string) (Chord, error) {
	intervals, ok := chordIntervals[mode]
	if !ok {
		return Chord{}, newError(NameErrorKind, nil, "unknown chord mode %q", mode)
	}
	return NewChordFromIntervals(rootKey, intervals), nil
}

// NewChordFromIntervals builds a Chord directly from semitone offsets.
func NewChordFromIntervals(rootKey int, intervals []int) Chord {
	notes := make([]Note, len(intervals))
	for i, iv := range intervals {
		notes[i] = Note{Key: clampMIDI(rootKey + iv)}
	}
	return Chord{Notes: notes}
}

func clampMIDI(key int) int {
	if key < 0 {
		return 0
	}
	if key > 127 {
		return 127
	}
	return key
}
