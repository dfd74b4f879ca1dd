package cycle

import "testing"

func TestParseEmptySource(t *testing.T) {
	n, err := Parse("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindSubdivision || len(n.Children) != 0 {
		t.Fatalf("expected empty subdivision, got %+v", n)
	}
}

func TestParseSimpleSequence(t *testing.T) {
	n, err := Parse("c4 d4 e4 f4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindSubdivision || len(n.Children) != 4 {
		t.Fatalf("expected 4-child subdivision, got %+v", n)
	}
	for _, c := range n.Children {
		if c.Kind != KindPitch {
			t.Fatalf("expected pitch child, got %v", c.Kind)
		}
	}
}

func TestParseNameVsPitch(t *testing.T) {
	n, err := Parse("bd sn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Children[0].Kind != KindName || n.Children[0].Name != "bd" {
		t.Fatalf("expected name 'bd', got %+v", n.Children[0])
	}
	if n.Children[1].Kind != KindName || n.Children[1].Name != "sn" {
		t.Fatalf("expected name 'sn', got %+v", n.Children[1])
	}
}

func TestParseTopLevelStack(t *testing.T) {
	n, err := Parse("c4, e4, g4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindStack || len(n.Children) != 3 {
		t.Fatalf("expected 3-way stack, got %+v", n)
	}
}

func TestParseAlternation(t *testing.T) {
	n, err := Parse("<bd sn hh>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindAlternation || len(n.Children) != 3 {
		t.Fatalf("expected 3-way alternation, got %+v", n)
	}
}

func TestParsePolymeterWithSteps(t *testing.T) {
	n, err := Parse("{bd sn hh}%4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindPolymeter || n.PolymeterSteps != 4 || len(n.Children) != 3 {
		t.Fatalf("expected 3 children / 4 steps polymeter, got %+v", n)
	}
}

func TestParseEuclid(t *testing.T) {
	n, err := Parse("bd(3,8)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Ops) != 1 || n.Ops[0].Kind != OpEuclid {
		t.Fatalf("expected euclid op, got %+v", n.Ops)
	}
	if n.Ops[0].EuclidK != 3 || n.Ops[0].EuclidN != 8 {
		t.Fatalf("expected (3,8), got (%d,%d)", n.Ops[0].EuclidK, n.Ops[0].EuclidN)
	}
}

func TestParseEuclidRejectsExpression(t *testing.T) {
	if _, err := Parse("bd(k,8)"); err == nil {
		t.Fatal("expected parse error for non-literal euclid argument")
	}
}

func TestParseDegradeDefaultProbability(t *testing.T) {
	n, err := Parse("bd?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Ops) != 1 || n.Ops[0].Kind != OpDegrade || n.Ops[0].Prob != 0.5 {
		t.Fatalf("expected default 0.5 degrade, got %+v", n.Ops)
	}
}

func TestParseHoldAndRest(t *testing.T) {
	n, err := Parse("c4 _ ~ d4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Children) != 4 {
		t.Fatalf("expected 4 raw children before flatten, got %d", len(n.Children))
	}
	if n.Children[1].Kind != KindHold {
		t.Fatalf("expected hold at index 1, got %v", n.Children[1].Kind)
	}
	if n.Children[2].Kind != KindRest {
		t.Fatalf("expected rest at index 2, got %v", n.Children[2].Kind)
	}
}

func TestParseTargetAttribute(t *testing.T) {
	n, err := Parse("bd:v0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Ops) != 1 || n.Ops[0].Kind != OpTarget || n.Ops[0].TargetAttr != 'v' || n.Ops[0].Value != 0.5 {
		t.Fatalf("expected target v=0.5, got %+v", n.Ops)
	}
}

// A negative target value after ':' has no digit to merge into the
// identifier, but previously never reached parseSignedFloat at all.
func TestParseTargetAttributeNegativeValue(t *testing.T) {
	n, err := Parse("c4:p-0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Ops) != 1 || n.Ops[0].Kind != OpTarget || n.Ops[0].TargetAttr != 'p' || !n.Ops[0].HasValue || n.Ops[0].Value != -0.5 {
		t.Fatalf("expected target p=-0.5, got %+v", n.Ops)
	}
}

// The bare-atom form (no leading ':') hits the same greedy-scan pitfall:
// the identifier scan would otherwise fold the value's leading digit into
// the single-letter code, e.g. "v0" out of "v0.5".
func TestParseStandaloneTargetAtom(t *testing.T) {
	n, err := Parse("v0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindTarget || n.TargetAttr != 'v' || n.Number != 0.5 {
		t.Fatalf("expected standalone target v=0.5, got %+v", n)
	}
}

// "d" is a valid bare pitch letter, but "d.25"/"d-1.0" can only be a
// target value since a pitch atom never continues with '.' or '-'.
func TestParseAmbiguousDTargetVsPitch(t *testing.T) {
	target, err := Parse("d.25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Kind != KindTarget || target.TargetAttr != 'd' || target.Number != 0.25 {
		t.Fatalf("expected standalone target d=0.25, got %+v", target)
	}

	pitch, err := Parse("d4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pitch.Kind != KindPitch || pitch.Pitch != "d4" {
		t.Fatalf("expected pitch d4, got %+v", pitch)
	}
}

func TestParseRange(t *testing.T) {
	n, err := Parse("0..3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindSubdivision || len(n.Children) != 4 {
		t.Fatalf("expected 4-element range expansion, got %+v", n)
	}
	for i, c := range n.Children {
		if c.Number != float64(i) {
			t.Fatalf("range child %d = %v, want %d", i, c.Number, i)
		}
	}
}

func TestParseChord(t *testing.T) {
	n, err := Parse("c4'maj")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindChord || n.Pitch != "c4" || n.ChordMode != "maj" {
		t.Fatalf("expected chord c4'maj, got %+v", n)
	}
}
