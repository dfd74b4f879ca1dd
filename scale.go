package pattrns

import "strings"

// scaleModes maps a mode name to its interval pattern in semitones from the
// tonic, one entry per scale degree.
var scaleModes = map[string][]int{
	"ionian":     {0, 2, 4, 5, 7, 9, 11},
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"dorian":     {0, 2, 3, 5, 7, 9, 10},
	"phrygian":   {0, 1, 3, 5, 7, 8, 10},
	"lydian":     {0, 2, 4, 6, 7, 9, 11},
	"mixolydian": {0, 2, 4, 5, 7, 9, 10},
	"aeolian":    {0, 2, 3, 5, 7, 8, 10},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"locrian":    {0, 1, 3, 5, 6, 8, 10},
}

var romanDegree = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5, "vi": 6, "vii": 7,
}

// DegreeChord builds the triad stacked in thirds on the given scale degree
// (a roman numeral I..VII, case-insensitive, with an optional leading
// accidental 'b'/'#' and trailing quality override such as "m7" or "dim7")
// of the named mode rooted at rootKey.
func DegreeChord(rootKey int, modeName, degree string) (Chord, error) {
	intervals, ok := scaleModes[strings.ToLower(modeName)]
	if !ok {
		return Chord{}, newError(NameErrorKind, nil, "unknown scale mode %q", modeName)
	}

	d := degree
	accidental := 0
	if len(d) > 0 && (d[0] == 'b' || d[0] == '#') {
		if d[0] == 'b' {
			accidental = -1
		} else {
			accidental = 1
		}
		d = d[1:]
	}

	numeral, quality := splitNumeral(d)
	deg, ok := romanDegree[strings.ToLower(numeral)]
	if !ok {
		return Chord{}, newError(NameErrorKind, nil, "unknown scale degree %q", degree)
	}

	degreeInSteps := func(step int) int {
		octaves := step / len(intervals)
		idx := step % len(intervals)
		return 12*octaves + intervals[idx]
	}
	root := rootKey + degreeInSteps(deg-1) + accidental

	if quality != "" {
		return NewChord(root, quality)
	}
	// Default to the diatonic triad: stack the scale's own third and fifth
	// above the degree root, rather than assuming a fixed major/minor shape.
	third := rootKey + degreeInSteps(deg+1) - root
	fifth := rootKey + degreeInSteps(deg+3) - root
	return NewChordFromIntervals(root, []int{0, third, fifth}), nil
}

// splitNumeral splits a degree token into its leading roman-numeral run and
// any trailing quality suffix, e.g. "ii7" -> ("ii", "7").
func splitNumeral(d string) (numeral, quality string) {
	for i, r := range d {
		if r != 'i' && r != 'v' && r != 'I' && r != 'V' {
			return d[:i], d[i:]
		}
	}
	return d, ""
}
