package model

import (
	"bytes"
	"testing"
)

func TestItemBinaryRoundTrip(t *testing.T) {
	items := []Item{
		{Type: "apple", Count: 5},
		{Type: "sword", Count: 1, Attributes: map[string]string{
			"material":    "iron",
			"enchantment": "sharpness:2",
		}},
		{Type: "bread", Count: 64},
	}

	for _, want := range items {
		buf := want.AppendBinary(nil)
		got, err := ReadItem(bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("ReadItem(%q): %v", want.Type, err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestItemBinaryConcatenated(t *testing.T) {
	first := Item{Type: "apple", Count: 3}
	second := Item{Type: "shield", Count: 1, Attributes: map[string]string{"durability": "55"}}

	var buf []byte
	buf = first.AppendBinary(buf)
	buf = second.AppendBinary(buf)

	r := bytes.NewReader(buf)
	a, err := ReadItem(r)
	if err != nil {
		t.Fatalf("first ReadItem: %v", err)
	}
	b, err := ReadItem(r)
	if err != nil {
		t.Fatalf("second ReadItem: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected reader drained, %d bytes left", r.Len())
	}
	if !a.Equal(first) || !b.Equal(second) {
		t.Errorf("concatenated round trip mismatch: %+v, %+v", a, b)
	}
}

func TestReadItemTruncated(t *testing.T) {
	full := Item{Type: "sword", Count: 1, Attributes: map[string]string{"material": "iron"}}.AppendBinary(nil)

	for cut := 0; cut < len(full); cut++ {
		if _, err := ReadItem(bytes.NewReader(full[:cut])); err == nil {
			t.Errorf("truncated at %d bytes: expected error, got none", cut)
		}
	}
}

func TestReadItemUnknownVersion(t *testing.T) {
	buf := Item{Type: "apple", Count: 1}.AppendBinary(nil)
	buf[0] = 99
	if _, err := ReadItem(bytes.NewReader(buf)); err == nil {
		t.Fatal("expected error for unknown version byte")
	}
}

func TestItemEqualNilVsEmptyAttributes(t *testing.T) {
	a := Item{Type: "apple", Count: 1, Attributes: nil}
	b := Item{Type: "apple", Count: 1, Attributes: map[string]string{}}
	if !a.Equal(b) {
		t.Error("nil and empty attribute maps should compare equal")
	}
}

func TestItemCloneIndependence(t *testing.T) {
	orig := Item{Type: "sword", Count: 1, Attributes: map[string]string{"material": "iron"}}
	clone := orig.Clone()
	clone.Attributes["material"] = "gold"
	if orig.Attributes["material"] != "iron" {
		t.Error("mutating clone attributes changed the original")
	}
}

func TestNormalizeKitName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"starter", "starter", true},
		{"  Starter  ", "starter", true},
		{"DAILY", "daily", true},
		{"", "", false},
		{"   ", "", false},
		{"this-name-is-way-too-long-to-be-a-kit-name", "this-name-is-way-too-long-to-be-a-kit-name", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeKitName(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeKitName(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeIcon(t *testing.T) {
	if got := NormalizeIcon("chest"); got != "chest" {
		t.Errorf("valid icon rewritten to %q", got)
	}
	if got := NormalizeIcon("definitely_not_real"); got != DefaultIcon {
		t.Errorf("invalid icon = %q, want default %q", got, DefaultIcon)
	}
}
