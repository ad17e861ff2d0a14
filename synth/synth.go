// Package synth provides the reference polyphonic synthesizer: one
// oscillator, an ADSR envelope and a brightness filter per voice, and a
// shared echo section that gives the output a tail. It implements
// tahti.Synth plus every optional capability interface, so the whole
// plugin surface can be exercised without native code.
package synth

import (
	"fmt"
	"math"

	"github.com/vsariola/tahti"
)

type (
	// Poly is the reference synth. All methods are meant to be called
	// from the audio context only; Render never allocates.
	Poly struct {
		patch      Patch
		sampleRate float64
		waveform   int
		values     [numParams]float64
		voices     []voice
		echo       echo
		echoDelay  int
	}

	// Patch is a preset: which waveform to play, how the envelope
	// moves, and how much echo to lay on top.
	Patch struct {
		Name       string  `yaml:"name"`
		Waveform   string  `yaml:"waveform"`
		Voices     int     `yaml:"voices"`
		Gain       float64 `yaml:"gain"`
		Attack     float64 `yaml:"attack"`
		Decay      float64 `yaml:"decay"`
		Sustain    float64 `yaml:"sustain"`
		Release    float64 `yaml:"release"`
		Brightness float64 `yaml:"brightness"`
		Echo       Echo    `yaml:"echo,omitempty"`
	}

	// Echo configures the shared echo section. Level 0 disables it.
	Echo struct {
		Level    float64 `yaml:"level"`
		Time     float64 `yaml:"time"`
		Feedback float64 `yaml:"feedback"`
	}

	voice struct {
		envState   int
		env        float64
		phase      float64
		freq       float64
		low        float64
		key        byte
		velocity   float64
		tune       float64
		exprVolume float64
		exprPan    float64
		exprBright float64
		overrides  [numParams]float64
		overridden [numParams]bool
	}

	echo struct {
		buffer [echoLength][2]float32
		pos    int
	}
)

// Parameter ids of the reference synth. The engine resolves global and
// per-voice scopes; the synth only ever sees effective values.
const (
	ParamGain tahti.ParamID = iota
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease
	ParamBrightness
	ParamEcho
)

const numParams = 7

const MaxVoices = 32

const (
	envStateOff = iota
	envStateAttack
	envStateDecay
	envStateSustain
	envStateRelease
)

const (
	waveSine = iota
	waveTriangle
	wavePulse
	waveSaw
)

const echoLength = 1 << 16

const quietLevel = 1e-4

var waveformNames = map[string]int{
	"sine":     waveSine,
	"triangle": waveTriangle,
	"pulse":    wavePulse,
	"saw":      waveSaw,
}

// Default returns the patch a fresh synth should start from.
func Default() Patch {
	return Patch{
		Name:       "Init",
		Waveform:   "sine",
		Voices:     8,
		Gain:       0.7,
		Attack:     0.005,
		Decay:      0.1,
		Sustain:    0.8,
		Release:    0.3,
		Brightness: 1,
	}
}

// Validate checks that the patch can be played at all.
func (p *Patch) Validate() error {
	if p.Voices < 1 || p.Voices > MaxVoices {
		return fmt.Errorf("voices %d out of range 1..%d", p.Voices, MaxVoices)
	}
	if _, ok := waveformNames[p.Waveform]; !ok {
		return fmt.Errorf("unknown waveform %q", p.Waveform)
	}
	if p.Attack < 0 || p.Decay < 0 || p.Release < 0 {
		return fmt.Errorf("envelope times must not be negative")
	}
	if p.Sustain < 0 || p.Sustain > 1 {
		return fmt.Errorf("sustain %v out of range 0..1", p.Sustain)
	}
	if p.Echo.Feedback < 0 || p.Echo.Feedback > 0.95 {
		return fmt.Errorf("echo feedback %v out of range 0..0.95", p.Echo.Feedback)
	}
	if p.Echo.Time < 0 {
		return fmt.Errorf("echo time must not be negative")
	}
	return nil
}

func NewPoly(patch Patch, sampleRate int) (*Poly, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patch %q: %v", patch.Name, err)
	}
	p := &Poly{
		patch:      patch,
		sampleRate: float64(sampleRate),
		waveform:   waveformNames[patch.Waveform],
		voices:     make([]voice, patch.Voices),
	}
	p.values = [numParams]float64{
		patch.Gain, patch.Attack, patch.Decay, patch.Sustain,
		patch.Release, patch.Brightness, patch.Echo.Level,
	}
	p.echoDelay = int(patch.Echo.Time * p.sampleRate)
	if p.echoDelay >= echoLength {
		p.echoDelay = echoLength - 1
	}
	return p, nil
}

// Patch returns the patch the synth was built from.
func (p *Poly) Patch() Patch { return p.patch }

// Render adds the output of all sounding voices, and the echo of
// everything before them, into the buffer.
func (p *Poly) Render(buffer tahti.AudioBuffer) (renderError error) {
	defer func() {
		if err := recover(); err != nil {
			renderError = fmt.Errorf("render panicked: %v", err)
		}
	}()
	echoLevel := float32(p.values[ParamEcho])
	feedback := float32(p.patch.Echo.Feedback)
	for i := range buffer {
		var left, right float64
		for v := range p.voices {
			voice := &p.voices[v]
			if voice.envState == envStateOff {
				continue
			}
			env := p.advanceEnvelope(voice)
			osc := oscSample(p.waveform, voice.phase)
			voice.phase += voice.freq * voice.tune
			if voice.phase >= 1 {
				voice.phase -= 1
			}
			bright := p.paramFor(voice, ParamBrightness)
			if voice.exprBright >= 0 {
				bright = voice.exprBright
			}
			coef := 0.02 + 0.98*bright*bright
			voice.low += coef * (osc - voice.low)
			amp := env * voice.velocity * p.paramFor(voice, ParamGain) * voice.exprVolume
			sample := voice.low * amp
			left += sample * (1 - voice.exprPan)
			right += sample * voice.exprPan
		}
		l, r := float32(left), float32(right)
		if p.echoDelay > 0 && echoLevel > 0 {
			read := (p.echo.pos - p.echoDelay) & (echoLength - 1)
			wetL := p.echo.buffer[read][0]
			wetR := p.echo.buffer[read][1]
			p.echo.buffer[p.echo.pos][0] = l + wetL*feedback
			p.echo.buffer[p.echo.pos][1] = r + wetR*feedback
			p.echo.pos = (p.echo.pos + 1) & (echoLength - 1)
			l += wetL * echoLevel
			r += wetR * echoLevel
		}
		buffer[i][0] += l
		buffer[i][1] += r
	}
	return nil
}

func (p *Poly) Trigger(slot int, key byte, velocity float64) {
	if slot < 0 || slot >= len(p.voices) {
		return
	}
	v := &p.voices[slot]
	env, phase := v.env, v.phase
	if v.envState == envStateOff {
		env, phase = 0, 0
	}
	// the envelope restarts from its current level, so a retrigger of a
	// sounding voice does not click
	*v = voice{
		envState:   envStateAttack,
		env:        env,
		phase:      phase,
		freq:       keyFreq(key) / p.sampleRate,
		key:        key,
		velocity:   velocity,
		tune:       1,
		exprVolume: 1,
		exprPan:    0.5,
		exprBright: -1,
	}
}

func (p *Poly) Release(slot int) {
	if slot < 0 || slot >= len(p.voices) {
		return
	}
	v := &p.voices[slot]
	if v.envState != envStateOff && v.envState != envStateRelease {
		v.envState = envStateRelease
	}
}

func (p *Poly) Choke(slot int) {
	if slot < 0 || slot >= len(p.voices) {
		return
	}
	p.voices[slot].envState = envStateOff
	p.voices[slot].env = 0
}

func (p *Poly) Finished(slot int) bool {
	if slot < 0 || slot >= len(p.voices) {
		return true
	}
	return p.voices[slot].envState == envStateOff
}

func (p *Poly) SetParameter(id tahti.ParamID, value float64) {
	if int(id) < numParams {
		p.values[id] = value
	}
}

func (p *Poly) SetVoiceParameter(slot int, id tahti.ParamID, value float64) {
	if slot < 0 || slot >= len(p.voices) || int(id) >= numParams {
		return
	}
	p.voices[slot].overrides[id] = value
	p.voices[slot].overridden[id] = true
}

// SetVoiceExpression implements tahti.ExpressionSink. Expressions the
// synth has no use for fall through silently.
func (p *Poly) SetVoiceExpression(slot int, id tahti.ExpressionID, value float64) {
	if slot < 0 || slot >= len(p.voices) {
		return
	}
	v := &p.voices[slot]
	switch id {
	case tahti.ExpressionVolume:
		v.exprVolume = value
	case tahti.ExpressionPan:
		v.exprPan = value
	case tahti.ExpressionTuning:
		v.tune = math.Pow(2, value/12)
	case tahti.ExpressionBrightness:
		v.exprBright = value
	}
}

// TailFrames estimates how long the echo keeps repeating audibly after
// the last voice goes silent.
func (p *Poly) TailFrames() int {
	level := p.values[ParamEcho]
	if p.echoDelay == 0 || level <= 0 {
		return 0
	}
	feedback := p.patch.Echo.Feedback
	if feedback <= 0 {
		return p.echoDelay
	}
	repeats := math.Log(quietLevel/level) / math.Log(feedback)
	if repeats < 1 {
		repeats = 1
	}
	if repeats > 64 {
		repeats = 64
	}
	return (int(repeats) + 1) * p.echoDelay
}

func (p *Poly) VoiceInfo() tahti.VoiceInfo {
	return tahti.VoiceInfo{Count: len(p.voices), Capacity: len(p.voices)}
}

func (p *Poly) Params() []tahti.ParamInfo {
	return []tahti.ParamInfo{
		{ID: ParamGain, Name: "gain", Min: 0, Max: 1, Default: p.patch.Gain, PerVoice: true},
		{ID: ParamAttack, Name: "attack", Min: 0, Max: 10, Default: p.patch.Attack, PerVoice: true},
		{ID: ParamDecay, Name: "decay", Min: 0, Max: 10, Default: p.patch.Decay, PerVoice: true},
		{ID: ParamSustain, Name: "sustain", Min: 0, Max: 1, Default: p.patch.Sustain, PerVoice: true},
		{ID: ParamRelease, Name: "release", Min: 0, Max: 10, Default: p.patch.Release, PerVoice: true},
		{ID: ParamBrightness, Name: "brightness", Min: 0, Max: 1, Default: p.patch.Brightness, PerVoice: true},
		{ID: ParamEcho, Name: "echo", Min: 0, Max: 1, Default: p.patch.Echo.Level},
	}
}

func (p *Poly) advanceEnvelope(v *voice) float64 {
	switch v.envState {
	case envStateAttack:
		v.env += envelopeStep(p.paramFor(v, ParamAttack), p.sampleRate)
		if v.env >= 1 {
			v.env = 1
			v.envState = envStateDecay
		}
	case envStateDecay:
		sustain := p.paramFor(v, ParamSustain)
		v.env -= envelopeStep(p.paramFor(v, ParamDecay), p.sampleRate)
		if v.env <= sustain {
			v.env = sustain
			v.envState = envStateSustain
		}
	case envStateSustain:
		v.env = p.paramFor(v, ParamSustain)
	case envStateRelease:
		v.env -= envelopeStep(p.paramFor(v, ParamRelease), p.sampleRate)
		if v.env <= 0 {
			v.env = 0
			v.envState = envStateOff
		}
	}
	return v.env
}

func (p *Poly) paramFor(v *voice, id tahti.ParamID) float64 {
	if v.overridden[id] {
		return v.overrides[id]
	}
	return p.values[id]
}

// envelopeStep is the per-sample change that crosses the full unit
// range in the given number of seconds.
func envelopeStep(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 1
	}
	return 1 / (seconds * sampleRate)
}

func oscSample(waveform int, phase float64) float64 {
	switch waveform {
	case waveTriangle:
		return 4*math.Abs(phase-0.5) - 1
	case wavePulse:
		if phase < 0.5 {
			return 1
		}
		return -1
	case waveSaw:
		return 2*phase - 1
	}
	return math.Sin(2 * math.Pi * phase)
}

func keyFreq(key byte) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}
