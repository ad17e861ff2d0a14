package engine

import (
	"github.com/vsariola/tahti"
)

type (
	// ParamResolver folds parameter values and modulation offsets into
	// the single effective value a voice hears. Every parameter has a
	// global base value and a global modulation; on top of those, each
	// voice slot can carry its own base and its own modulation, which
	// supersede the global ones per axis. The effective value is always
	// base plus modulation, clamped to the declared range. All storage
	// is sized at construction, so applying events never allocates.
	ParamResolver struct {
		infos  []tahti.ParamInfo
		index  map[tahti.ParamID]int
		global []paramState
		voice  [][]voiceParam
	}

	paramState struct {
		value float64
		mod   float64
	}

	voiceParam struct {
		value    float64
		mod      float64
		hasValue bool
		hasMod   bool
	}
)

// NewParamResolver builds a resolver for the given parameters, with
// per-voice storage for the given number of slots. Every parameter
// starts at its default value with no modulation.
func NewParamResolver(infos []tahti.ParamInfo, slots int) *ParamResolver {
	r := &ParamResolver{
		infos:  infos,
		index:  make(map[tahti.ParamID]int, len(infos)),
		global: make([]paramState, len(infos)),
		voice:  make([][]voiceParam, slots),
	}
	for i, info := range infos {
		r.index[info.ID] = i
		r.global[i].value = info.Default
	}
	for s := range r.voice {
		r.voice[s] = make([]voiceParam, len(infos))
	}
	return r
}

// Registered reports whether the id names a known parameter.
func (r *ParamResolver) Registered(id tahti.ParamID) bool {
	_, ok := r.index[id]
	return ok
}

// Lookup returns the declaration of a parameter.
func (r *ParamResolver) Lookup(id tahti.ParamID) (tahti.ParamInfo, bool) {
	i, ok := r.index[id]
	if !ok {
		return tahti.ParamInfo{}, false
	}
	return r.infos[i], true
}

// Infos returns the declarations the resolver was built with.
func (r *ParamResolver) Infos() []tahti.ParamInfo { return r.infos }

// SetValue sets the global base value of a parameter.
func (r *ParamResolver) SetValue(id tahti.ParamID, value float64) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.global[i].value = value
	return true
}

// SetMod sets the global modulation offset of a parameter.
func (r *ParamResolver) SetMod(id tahti.ParamID, mod float64) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.global[i].mod = mod
	return true
}

// SetVoiceValue overrides the base value of a parameter for one slot.
// The override lasts until the slot is cleared.
func (r *ParamResolver) SetVoiceValue(slot int, id tahti.ParamID, value float64) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.voice[slot][i].value = value
	r.voice[slot][i].hasValue = true
	return true
}

// SetVoiceMod overrides the modulation of a parameter for one slot. A
// per-voice modulation replaces the global one outright; it is not
// added on top of it.
func (r *ParamResolver) SetVoiceMod(slot int, id tahti.ParamID, mod float64) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.voice[slot][i].mod = mod
	r.voice[slot][i].hasMod = true
	return true
}

// VoiceOverridden reports whether a slot carries any override, base or
// modulation, of the parameter.
func (r *ParamResolver) VoiceOverridden(slot int, id tahti.ParamID) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	v := &r.voice[slot][i]
	return v.hasValue || v.hasMod
}

// ClearVoice drops every per-voice override of a slot, so a freshly
// triggered voice starts from the global state.
func (r *ParamResolver) ClearVoice(slot int) {
	for i := range r.voice[slot] {
		r.voice[slot][i] = voiceParam{}
	}
}

// Effective returns the value a voice hears for a parameter: the
// per-voice base if one is set, else the global base, plus the
// per-voice modulation if one is set, else the global one. The sum is
// clamped to the parameter's declared range.
func (r *ParamResolver) Effective(slot int, id tahti.ParamID) (float64, bool) {
	i, ok := r.index[id]
	if !ok {
		return 0, false
	}
	value, mod := r.global[i].value, r.global[i].mod
	if v := &r.voice[slot][i]; v.hasValue {
		value = v.value
	}
	if v := &r.voice[slot][i]; v.hasMod {
		mod = v.mod
	}
	return r.clamp(i, value+mod), true
}

// EffectiveGlobal returns the value heard where no voice overrides
// apply: global base plus global modulation, clamped.
func (r *ParamResolver) EffectiveGlobal(id tahti.ParamID) (float64, bool) {
	i, ok := r.index[id]
	if !ok {
		return 0, false
	}
	return r.clamp(i, r.global[i].value+r.global[i].mod), true
}

// Reset restores every parameter to its default and drops all
// modulation and voice overrides.
func (r *ParamResolver) Reset() {
	for i := range r.global {
		r.global[i] = paramState{value: r.infos[i].Default}
	}
	for s := range r.voice {
		r.ClearVoice(s)
	}
}

func (r *ParamResolver) clamp(i int, value float64) float64 {
	info := &r.infos[i]
	if info.Min < info.Max {
		if value < info.Min {
			return info.Min
		}
		if value > info.Max {
			return info.Max
		}
	}
	return value
}
