package tahti_test

import (
	"testing"

	"github.com/vsariola/tahti"
)

func TestVersionCompatible(t *testing.T) {
	v := func(major, minor, revision uint32) tahti.Version {
		return tahti.Version{Major: major, Minor: minor, Revision: revision}
	}
	tests := []struct {
		a, b     tahti.Version
		expected bool
	}{
		{v(0, 24, 1), v(0, 24, 1), true},
		{v(0, 24, 1), v(0, 24, 9), true}, // revisions never break compatibility
		{v(0, 24, 1), v(0, 25, 0), false},
		{v(0, 24, 1), v(1, 0, 0), false},
		{v(1, 2, 0), v(1, 9, 9), true}, // minors are compatible from 1.0 on
		{v(1, 0, 0), v(2, 0, 0), false},
	}
	for _, test := range tests {
		if got := test.a.Compatible(test.b); got != test.expected {
			t.Errorf("%v.Compatible(%v) got %v, expected %v", test.a, test.b, got, test.expected)
		}
		if got := test.b.Compatible(test.a); got != test.expected {
			t.Errorf("%v.Compatible(%v) got %v, expected %v", test.b, test.a, got, test.expected)
		}
	}
}
