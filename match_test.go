package tahti_test

import (
	"testing"

	"github.com/vsariola/tahti"
)

func TestTargetMatches(t *testing.T) {
	tests := []struct {
		target   tahti.Target
		value    int16
		expected bool
	}{
		{tahti.Specific(60), 60, true},
		{tahti.Specific(60), 61, false},
		{tahti.Specific(0), 0, true},
		{tahti.Any(), 0, true},
		{tahti.Any(), 127, true},
		{tahti.Any(), -3, true},
	}
	for _, test := range tests {
		if got := test.target.Matches(test.value); got != test.expected {
			t.Errorf("%v.Matches(%v) got %v, expected %v", test.target, test.value, got, test.expected)
		}
	}
}

func TestTargetIdentity(t *testing.T) {
	if tahti.Any() == tahti.Specific(60) {
		t.Fatalf("wildcard target compares equal to a specific target it matches")
	}
	if tahti.Specific(60) != tahti.Specific(60) {
		t.Fatalf("equal specific targets compare unequal")
	}
	if tahti.Any() != tahti.Any() {
		t.Fatalf("wildcard targets compare unequal")
	}
	var zero tahti.Target
	if zero != tahti.Specific(0) {
		t.Fatalf("zero target is not Specific(0)")
	}
	if zero.IsAny() {
		t.Fatalf("zero target matches everything")
	}
}

func TestTargetUnpack(t *testing.T) {
	if v, ok := tahti.Specific(5).Unpack(); !ok || v != 5 {
		t.Fatalf("Specific(5).Unpack() got %v/%v, expected 5/true", v, ok)
	}
	if _, ok := tahti.Any().Unpack(); ok {
		t.Fatalf("Any().Unpack() reported a specific value")
	}
}

func TestVoiceRef(t *testing.T) {
	var unset tahti.VoiceRef
	if !unset.Empty() {
		t.Fatalf("zero VoiceRef is not empty")
	}
	ref := tahti.NewVoiceRef(42)
	id, ok := ref.Unpack()
	if !ok || id != 42 {
		t.Fatalf("NewVoiceRef(42).Unpack() got %v/%v, expected 42/true", id, ok)
	}
}
