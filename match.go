package tahti

import "strconv"

// Target selects the recipients of an event along one axis (port,
// channel or key). It is either a specific value or Any, which matches
// every value on that axis. The zero Target is Specific(0): matching
// everything has to be asked for explicitly. Two targets are identical
// only when they are both Any or both the same specific value; Any is
// never equal to a specific target, even one it matches.
type Target struct {
	value    int16
	wildcard bool
}

// Specific makes a target matching exactly one value.
func Specific(value int16) Target { return Target{value: value} }

// Any makes a target matching every value on its axis.
func Any() Target { return Target{wildcard: true} }

// Unpack returns the specific value and whether the target is specific.
func (t Target) Unpack() (int16, bool) { return t.value, !t.wildcard }

// IsAny reports whether the target matches everything.
func (t Target) IsAny() bool { return t.wildcard }

// Value returns the specific value; meaningful only when IsAny is false.
func (t Target) Value() int16 { return t.value }

// Matches reports whether the target accepts the given specific value.
func (t Target) Matches(value int16) bool {
	return t.wildcard || t.value == value
}

func (t Target) String() string {
	if t.wildcard {
		return "*"
	}
	return strconv.Itoa(int(t.value))
}

// VoiceRef is an optional host-assigned voice identifier carried on
// note and parameter events. Hosts that do not track voices leave it
// unset; the engine then matches voices by their (port, channel, key)
// triple alone.
type VoiceRef struct {
	id     int32
	exists bool
}

// NewVoiceRef makes a set voice reference.
func NewVoiceRef(id int32) VoiceRef { return VoiceRef{id: id, exists: true} }

// Unpack returns the identifier and whether the reference is set.
func (v VoiceRef) Unpack() (int32, bool) { return v.id, v.exists }

// Empty reports whether the reference is unset.
func (v VoiceRef) Empty() bool { return !v.exists }

// Matches reports whether a selector reference accepts a voice carrying
// other: an unset selector accepts every voice, a set one only voices
// started with the same reference.
func (v VoiceRef) Matches(other VoiceRef) bool {
	if !v.exists {
		return true
	}
	return other.exists && v.id == other.id
}

func (v VoiceRef) String() string {
	if !v.exists {
		return "-"
	}
	return strconv.Itoa(int(v.id))
}
