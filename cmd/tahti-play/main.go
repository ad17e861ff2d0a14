package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/cmd"
	"github.com/vsariola/tahti/engine"
	"github.com/vsariola/tahti/host"
	"github.com/vsariola/tahti/oto"
	"github.com/vsariola/tahti/session"
	"github.com/vsariola/tahti/synth"
	"github.com/vsariola/tahti/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the script file is.")
	play := flag.Bool("p", false, "Play the rendered sessions (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered session as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered session as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	patchName := flag.String("patch", "", "Name of the preset patch to play with. Overrides the patch named in the script.")
	listPresets := flag.Bool("l", false, "List the available preset patches and exit.")
	live := flag.Bool("m", false, "Play live from a MIDI input instead of running a script. Requires cgo.")
	device := flag.String("device", "", "Name prefix of the MIDI input device to use with -m. By default, the first device is used.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *listPresets {
		for _, p := range synth.Presets() {
			fmt.Println(p.Name)
		}
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the script
	}
	if *live {
		if err := playLive(*patchName, *device); err != nil {
			fmt.Fprintf(os.Stderr, "could not play live: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	process := func(filename string) error {
		script := session.Demo()
		if filename != "" {
			var err error
			script, err = session.Load(filename)
			if err != nil {
				return err
			}
		}
		patch := synth.Default()
		name := script.Patch
		if *patchName != "" {
			name = *patchName
		}
		if name != "" {
			var ok bool
			if patch, ok = synth.Preset(name); !ok {
				return fmt.Errorf("unknown patch %q", name)
			}
		}
		poly, err := synth.NewPoly(patch, script.SampleRate)
		if err != nil {
			return err
		}
		log, err := session.Run(script, engine.NewDriver(poly))
		if err != nil {
			return fmt.Errorf("session.Run failed: %v", err)
		}
		if log.Errors > 0 {
			fmt.Fprintf(os.Stderr, "warning: the plugin rejected %d blocks\n", log.Errors)
		}
		output := func(extension string, contents []byte) error {
			base := "demo"
			dir := *directory
			if filename != "" {
				var name string
				dir, name = filepath.Split(filename)
				base = strings.TrimSuffix(name, filepath.Ext(name))
				if *directory != "" {
					dir = *directory
				}
			}
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			f := filepath.Join(dir, base+extension)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		if *rawOut {
			raw, err := tahti.Raw(log.Audio, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := tahti.Wav(log.Audio, script.SampleRate, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			audioContext, err := oto.NewContext(script.SampleRate)
			if err != nil {
				return fmt.Errorf("could not acquire oto AudioContext: %v", err)
			}
			defer audioContext.Close()
			sink := audioContext.Output()
			if err := sink.WriteAudio(log.Audio); err != nil {
				sink.Close()
				return fmt.Errorf("could not play audio: %v", err)
			}
			if err := sink.Close(); err != nil {
				return fmt.Errorf("could not close audio sink: %v", err)
			}
		}
		return nil
	}
	retval := 0
	if flag.NArg() == 0 {
		if err := process(""); err != nil {
			fmt.Fprintf(os.Stderr, "could not play the demo session: %v\n", err)
			retval = 1
		}
	}
	for _, param := range flag.Args() {
		if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// playLive runs the plugin as a tiny live instrument: MIDI messages are
// drained at every block boundary and the rendered blocks go straight
// to the audio device, which paces the loop.
func playLive(patchName, device string) error {
	const sampleRate = 44100
	const blockSize = 512
	patch := synth.Default()
	if patchName != "" {
		var ok bool
		if patch, ok = synth.Preset(patchName); !ok {
			return fmt.Errorf("unknown patch %q", patchName)
		}
	}
	poly, err := synth.NewPoly(patch, sampleRate)
	if err != nil {
		return err
	}
	h := host.New(engine.NewDriver(poly),
		host.WithSampleRate(sampleRate),
		host.WithBlockSize(blockSize),
	)
	midiInput := cmd.NewMIDIInput(sampleRate)
	defer midiInput.Close()
	midiInput.MapCC(1, synth.ParamBrightness, 0, 1) // mod wheel
	midiInput.TryToOpenBy(device, device == "")
	if !midiInput.HasDeviceOpen() {
		return fmt.Errorf("no MIDI input device found")
	}
	audioContext, err := oto.NewContext(sampleRate)
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	defer audioContext.Close()
	sink := audioContext.Output()
	defer sink.Close()
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	fmt.Fprintln(os.Stderr, "playing, ctrl-c to quit")
	for {
		select {
		case <-interrupted:
			return nil
		default:
		}
		midiInput.Drain(h, blockSize)
		h.Process()
		if err := sink.WriteAudio(h.Out()); err != nil {
			return fmt.Errorf("could not write audio: %v", err)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Tahti command line utility for playing session script files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
