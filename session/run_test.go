package session_test

import (
	"strings"
	"testing"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/engine"
	"github.com/vsariola/tahti/session"
	"github.com/vsariola/tahti/synth"
)

func newPlugin(t *testing.T, sampleRate int) *engine.Driver {
	t.Helper()
	patch := synth.Default()
	patch.Release = 0.02
	poly, err := synth.NewPoly(patch, sampleRate)
	if err != nil {
		t.Fatalf("NewPoly failed: %v", err)
	}
	return engine.NewDriver(poly)
}

func testScript() *session.Script {
	vel := 0.9
	return &session.Script{
		Name:       "test",
		SampleRate: 44100,
		BlockSize:  256,
		Blocks:     40,
		Events: []session.ScriptEvent{
			{Block: 0, Type: session.TypeTempo, Tempo: 120},
			{Block: 0, Type: session.TypePlay},
			{Block: 0, Time: 10, Type: session.TypeNoteOn, Velocity: &vel},
			{Block: 4, Type: session.TypeNoteOff},
		},
	}
}

func TestRun(t *testing.T) {
	script := testScript()
	log, err := session.Run(script, newPlugin(t, script.SampleRate))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(log.Blocks) == 0 {
		t.Fatal("no blocks processed")
	}
	if log.Errors > 0 {
		t.Fatalf("plugin rejected %d blocks", log.Errors)
	}
	if log.Blocks[0].Status != tahti.StatusContinue {
		t.Errorf("block 0 status = %v, expected %v", log.Blocks[0].Status, tahti.StatusContinue)
	}
	if log.Blocks[0].Peak <= 0 {
		t.Error("note on produced no audio")
	}
	last := log.Blocks[len(log.Blocks)-1]
	if last.Status != tahti.StatusSleep {
		t.Errorf("final status = %v, expected %v", last.Status, tahti.StatusSleep)
	}
	if len(log.Blocks) == script.Blocks {
		t.Error("run did not stop early on sleep")
	}
	ends := 0
	for _, b := range log.Blocks {
		for _, r := range b.Replies {
			if strings.Contains(r, "note end") {
				ends++
			}
		}
	}
	if ends != 1 {
		t.Errorf("saw %d note ends, expected 1", ends)
	}
	if last.Pending != 0 {
		t.Errorf("%d notes still pending after the note end", last.Pending)
	}
}

func TestRunStopsAtScriptLength(t *testing.T) {
	script := testScript()
	// a held note never sleeps, so the run must stop at the block count
	script.Events = script.Events[:3]
	log, err := session.Run(script, newPlugin(t, script.SampleRate))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(log.Blocks) != script.Blocks {
		t.Errorf("processed %d blocks, expected %d", len(log.Blocks), script.Blocks)
	}
	if got := len(log.Audio); got != script.Blocks*script.BlockSize {
		t.Errorf("rendered %d frames, expected %d", got, script.Blocks*script.BlockSize)
	}
}

func TestReport(t *testing.T) {
	script := testScript()
	log, err := session.Run(script, newPlugin(t, script.SampleRate))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	report, err := session.Report(log)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	for _, want := range []string{"Test", "sleep", "note end", "44100 Hz"} {
		if !strings.Contains(report, want) {
			t.Errorf("report does not mention %q:\n%s", want, report)
		}
	}
}

func TestDemoValidates(t *testing.T) {
	if err := session.Demo().Validate(); err != nil {
		t.Fatalf("demo script does not validate: %v", err)
	}
}
