package engine

import (
	"github.com/vsariola/tahti"
)

type (
	// VoiceTracker owns the table mapping voice slots to the notes the
	// host started. The driver resolves every note event against it; the
	// synth only ever hears slot numbers. The table is fixed size and
	// all operations are allocation free, so it can live on the audio
	// context.
	VoiceTracker struct {
		voices []voice
		policy DuplicatePolicy
	}

	// NoteRef is a voice's identity as the host knows it: the exact
	// (port, channel, key) triple from the note on that started it, and
	// the host's voice reference if it sent one. Note ends are matched
	// by the triple; the reference just rides along.
	NoteRef struct {
		Port    int16
		Channel int16
		Key     int16
		Ref     tahti.VoiceRef
	}

	VoiceState int

	// DuplicatePolicy decides what a note on does when a voice with the
	// same triple is already active.
	DuplicatePolicy int

	voice struct {
		state             VoiceState
		note              NoteRef
		velocity          float64
		samplesSinceEvent int
	}
)

const (
	// VoiceFree marks a slot that sounds nothing and can be allocated;
	// terminated voices return to this state.
	VoiceFree VoiceState = iota
	// VoiceActive marks a slot sounding a held note.
	VoiceActive
	// VoiceReleasing marks a slot ringing out after its note off, until
	// the dsp side signals that it finished.
	VoiceReleasing
)

var voiceStateNames = [...]string{"free", "active", "releasing"}

func (s VoiceState) String() string {
	if s < 0 || int(s) >= len(voiceStateNames) {
		return "invalid voice state"
	}
	return voiceStateNames[s]
}

const (
	// Retrigger resets the active voice with the same triple in place,
	// restarting its note; the host's voice carries over.
	Retrigger DuplicatePolicy = iota
	// Ignore drops a note on whose triple is already active.
	Ignore
)

// Matches reports whether the identity is accepted by the given
// selectors, wildcards matching everything on their axis.
func (n NoteRef) Matches(port, channel, key tahti.Target, ref tahti.VoiceRef) bool {
	return port.Matches(n.Port) && channel.Matches(n.Channel) &&
		key.Matches(n.Key) && ref.Matches(n.Ref)
}

func NewVoiceTracker(capacity int, policy DuplicatePolicy) *VoiceTracker {
	if capacity < 1 {
		capacity = 1
	}
	return &VoiceTracker{
		voices: make([]voice, capacity),
		policy: policy,
	}
}

// Len returns the number of voice slots.
func (vt *VoiceTracker) Len() int { return len(vt.voices) }

// State returns the lifecycle state of a slot.
func (vt *VoiceTracker) State(slot int) VoiceState { return vt.voices[slot].state }

// Note returns the identity of the note a slot sounds; meaningful only
// while the slot is not free.
func (vt *VoiceTracker) Note(slot int) NoteRef { return vt.voices[slot].note }

// Velocity returns the note on velocity of a slot.
func (vt *VoiceTracker) Velocity(slot int) float64 { return vt.voices[slot].velocity }

// Sounding returns the number of slots that are active or releasing.
func (vt *VoiceTracker) Sounding() (count int) {
	for i := range vt.voices {
		if vt.voices[i].state != VoiceFree {
			count++
		}
	}
	return count
}

// Active returns the number of slots sounding held notes.
func (vt *VoiceTracker) Active() (count int) {
	for i := range vt.voices {
		if vt.voices[i].state == VoiceActive {
			count++
		}
	}
	return count
}

// Advance ages every voice by the given number of rendered frames.
func (vt *VoiceTracker) Advance(frames int) {
	for i := range vt.voices {
		vt.voices[i].samplesSinceEvent += frames
	}
}

// NoteOn allocates a slot for the note and returns it. With the
// Retrigger policy a note whose triple is already active resets that
// same slot; with Ignore such a note returns slot -1. When every slot
// is busy the allocation steals one, preferring releasing voices over
// active ones and older voices over younger ones. A stolen voice
// terminates without its release phase; if the host must be told,
// needEnd is true and ended holds the identity to report. Ends are
// suppressed while another slot still sounds the same triple, or when
// the stolen triple is the one being started, since the host keeps one
// voice per triple alive for all of them.
func (vt *VoiceTracker) NoteOn(note NoteRef, velocity float64) (slot int, ended NoteRef, needEnd bool) {
	for i := range vt.voices {
		if vt.voices[i].state == VoiceActive && vt.voices[i].note.sameTriple(note) {
			if vt.policy == Ignore {
				return -1, NoteRef{}, false
			}
			vt.voices[i] = voice{state: VoiceActive, note: note, velocity: velocity}
			return i, NoteRef{}, false
		}
	}
	slot = -1
	for i := range vt.voices {
		if vt.voices[i].state == VoiceFree {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot, ended, needEnd = vt.steal(note)
	}
	vt.voices[slot] = voice{state: VoiceActive, note: note, velocity: velocity}
	return slot, ended, needEnd
}

// steal picks the slot to sacrifice for a new note. If the voice has
// been released, we prefer stealing that over a voice that is still
// held; between two voices in the same state we prefer the older one.
func (vt *VoiceTracker) steal(note NoteRef) (slot int, ended NoteRef, needEnd bool) {
	age := -1
	oldestReleased := false
	for i := range vt.voices {
		released := vt.voices[i].state == VoiceReleasing
		if (released && !oldestReleased) ||
			(released == oldestReleased && vt.voices[i].samplesSinceEvent > age) {
			slot = i
			oldestReleased = released
			age = vt.voices[i].samplesSinceEvent
		}
	}
	victim := vt.voices[slot].note
	vt.voices[slot].state = VoiceFree
	if !victim.sameTriple(note) && !vt.triplesSounding(victim) {
		return slot, victim, true
	}
	return slot, NoteRef{}, false
}

// Match appends every sounding slot accepted by the selectors to the
// given scratch slice, without changing any state.
func (vt *VoiceTracker) Match(port, channel, key tahti.Target, ref tahti.VoiceRef, slots []int) []int {
	for i := range vt.voices {
		if vt.voices[i].state != VoiceFree && vt.voices[i].note.Matches(port, channel, key, ref) {
			slots = append(slots, i)
		}
	}
	return slots
}

// Release moves every matching active voice to releasing and appends
// their slots to the given scratch slice. Voices already releasing are
// left alone, so redundant note offs are silent no-ops.
func (vt *VoiceTracker) Release(port, channel, key tahti.Target, ref tahti.VoiceRef, slots []int) []int {
	for i := range vt.voices {
		if vt.voices[i].state == VoiceActive && vt.voices[i].note.Matches(port, channel, key, ref) {
			vt.voices[i].state = VoiceReleasing
			vt.voices[i].samplesSinceEvent = 0
			slots = append(slots, i)
		}
	}
	return slots
}

// Choke terminates every matching active or releasing voice right away
// and appends their slots to the given scratch slice. Choked voices
// never report a note end: the host asked for the termination, so it
// already knows.
func (vt *VoiceTracker) Choke(port, channel, key tahti.Target, ref tahti.VoiceRef, slots []int) []int {
	for i := range vt.voices {
		if vt.voices[i].state != VoiceFree && vt.voices[i].note.Matches(port, channel, key, ref) {
			vt.voices[i].state = VoiceFree
			slots = append(slots, i)
		}
	}
	return slots
}

// Terminate frees a slot after the dsp side signalled that its voice
// finished. It reports whether a note end must go to the host, which is
// suppressed while another slot still sounds the same triple.
// Terminating a free slot does nothing, so duplicate signals collapse.
func (vt *VoiceTracker) Terminate(slot int) (ended NoteRef, needEnd bool) {
	if vt.voices[slot].state == VoiceFree {
		return NoteRef{}, false
	}
	vt.voices[slot].state = VoiceFree
	note := vt.voices[slot].note
	if vt.triplesSounding(note) {
		return NoteRef{}, false
	}
	return note, true
}

// Reset frees every slot without note ends.
func (vt *VoiceTracker) Reset() {
	for i := range vt.voices {
		vt.voices[i] = voice{}
	}
}

func (vt *VoiceTracker) triplesSounding(note NoteRef) bool {
	for i := range vt.voices {
		if vt.voices[i].state != VoiceFree && vt.voices[i].note.sameTriple(note) {
			return true
		}
	}
	return false
}

func (n NoteRef) sameTriple(other NoteRef) bool {
	return n.Port == other.Port && n.Channel == other.Channel && n.Key == other.Key
}
