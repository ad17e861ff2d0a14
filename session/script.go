// Package session runs scripted event sequences against a plugin,
// block by block, and collects what happened: statuses, replies, peak
// levels and the rendered audio. Scripts are plain YAML files, so
// protocol scenarios can be kept and replayed without writing code.
package session

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vsariola/tahti"
	"gopkg.in/yaml.v3"
)

type (
	// Script is one scripted session. Blocks counts how many blocks to
	// process at most; a script may end earlier when the plugin goes to
	// sleep after the last scripted event.
	Script struct {
		Name       string        `yaml:"name,omitempty"`
		SampleRate int           `yaml:"samplerate"`
		BlockSize  int           `yaml:"blocksize"`
		Blocks     int           `yaml:"blocks"`
		Patch      string        `yaml:"patch,omitempty"`
		Events     []ScriptEvent `yaml:"events"`
	}

	// ScriptEvent is one scripted action, addressed to a block and a
	// frame within it. Type selects the action; the other fields mean
	// different things for different types and may mostly be omitted.
	ScriptEvent struct {
		Block int    `yaml:"block"`
		Time  uint32 `yaml:"time,omitempty"`
		Type  string `yaml:"type"`

		// note and parameter targets; "*" matches everything on that
		// axis. An omitted target means 0 for notes and "*" for
		// parameter events.
		Port    *ScriptTarget `yaml:"port,omitempty"`
		Channel *ScriptTarget `yaml:"channel,omitempty"`
		Key     *ScriptTarget `yaml:"key,omitempty"`

		Velocity *float64 `yaml:"velocity,omitempty"`

		Param uint32  `yaml:"param,omitempty"`
		Value float64 `yaml:"value,omitempty"`

		Tempo float64 `yaml:"tempo,omitempty"`
		Beats float64 `yaml:"beats,omitempty"`
		End   float64 `yaml:"end,omitempty"`

		Data []byte `yaml:"data,omitempty,flow"`
	}

	// ScriptTarget is a Target in YAML: a number, or "*" for any.
	ScriptTarget struct {
		target tahti.Target
	}
)

// Script event types. Note and parameter types become events in the
// block's input queue; the transport types reconfigure the host
// timeline the named block is stamped with.
const (
	TypeNoteOn       = "note on"
	TypeNoteOff      = "note off"
	TypeChoke        = "choke"
	TypeParam        = "param"
	TypeMod          = "mod"
	TypeGestureBegin = "gesture begin"
	TypeGestureEnd   = "gesture end"
	TypeMIDI         = "midi"
	TypePlay         = "play"
	TypeStop         = "stop"
	TypeTempo        = "tempo"
	TypeSeek         = "seek"
	TypeLoop         = "loop"
	TypeFreeRun      = "free run"
)

// On makes a specific script target.
func On(value int16) *ScriptTarget { return &ScriptTarget{tahti.Specific(value)} }

// All makes a wildcard script target.
func All() *ScriptTarget { return &ScriptTarget{tahti.Any()} }

func (t *ScriptTarget) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "*" {
		t.target = tahti.Any()
		return nil
	}
	v, err := strconv.ParseInt(value.Value, 10, 16)
	if err != nil {
		return fmt.Errorf("target must be a number or \"*\", got %q", value.Value)
	}
	t.target = tahti.Specific(int16(v))
	return nil
}

func (t ScriptTarget) MarshalYAML() (any, error) {
	if t.target.IsAny() {
		return "*", nil
	}
	return int(t.target.Value()), nil
}

// Target resolves a possibly omitted target against a default.
func (t *ScriptTarget) Target(def tahti.Target) tahti.Target {
	if t == nil {
		return def
	}
	return t.target
}

// Load reads and validates a script from a YAML file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read script: %v", err)
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("could not parse script %v: %v", path, err)
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %v: %v", path, err)
	}
	return &script, nil
}

// Validate checks that the script can be run at all. Event fields are
// not checked here; a scripted event the engine cannot use is the
// engine's skip counter's business, same as with a real host.
func (s *Script) Validate() error {
	if s.SampleRate < 1 {
		return fmt.Errorf("samplerate %d out of range", s.SampleRate)
	}
	if s.BlockSize < 1 {
		return fmt.Errorf("blocksize %d out of range", s.BlockSize)
	}
	if s.Blocks < 1 {
		return fmt.Errorf("blocks %d out of range", s.Blocks)
	}
	for i, e := range s.Events {
		if e.Block < 0 || e.Block >= s.Blocks {
			return fmt.Errorf("event %d block %d out of range 0..%d", i, e.Block, s.Blocks-1)
		}
		if e.Time >= uint32(s.BlockSize) {
			return fmt.Errorf("event %d time %d out of range 0..%d", i, e.Time, s.BlockSize-1)
		}
	}
	return nil
}

func velocity(v float64) *float64 { return &v }

// Demo returns a small built-in script: a tempo, a chord, a release
// and a modulated parameter, enough to hear the plugin do something.
func Demo() *Script {
	return &Script{
		Name:       "demo",
		SampleRate: 44100,
		BlockSize:  512,
		Blocks:     300,
		Events: []ScriptEvent{
			{Block: 0, Type: TypeTempo, Tempo: 120},
			{Block: 0, Type: TypePlay},
			{Block: 0, Type: TypeNoteOn, Key: On(60), Velocity: velocity(0.9)},
			{Block: 20, Type: TypeNoteOn, Key: On(64), Velocity: velocity(0.8)},
			{Block: 40, Type: TypeNoteOn, Key: On(67), Velocity: velocity(0.8)},
			{Block: 60, Time: 100, Type: TypeParam, Param: 5, Value: 0.3},
			{Block: 90, Type: TypeMod, Param: 5, Value: 0.4},
			{Block: 120, Type: TypeNoteOff, Key: All()},
			{Block: 180, Type: TypeNoteOn, Key: On(72), Velocity: velocity(1)},
			{Block: 200, Type: TypeChoke, Key: On(72)},
			{Block: 220, Type: TypeStop},
		},
	}
}
