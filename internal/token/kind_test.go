package token

import "testing"

func TestFenceKind(t *testing.T) {
	tests := []struct {
		tag  string
		want RegionKind
		ok   bool
	}{
		{"schema", RegionSchema, true},
		{"stylesheet", RegionStyle, true},
		{"javascript", RegionJavascript, true},
		{"raw", RegionRaw, true},
		{"comment", RegionRaw, true},
		{"doc", RegionRaw, true},
		{"style", 0, false},
		{"if", 0, false},
	}
	for _, tt := range tests {
		got, ok := FenceKind(tt.tag)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FenceKind(%q) = (%v, %v), want (%v, %v)", tt.tag, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKindString(t *testing.T) {
	if TagOpen.String() != "TagOpen" || FenceEnd.String() != "FenceEnd" {
		t.Errorf("unexpected names: %s %s", TagOpen, FenceEnd)
	}
	if Kind(200).String() != "Kind(?)" {
		t.Errorf("out-of-range kind = %s", Kind(200))
	}
}

func TestOpener(t *testing.T) {
	tok := Token{Kind: TagClose, Name: "endcapture"}
	if tok.Opener() != "capture" {
		t.Errorf("Opener() = %q", tok.Opener())
	}
	if !tok.IsCloser() || !tok.IsTag() {
		t.Error("endcapture must be a closing tag")
	}
}
