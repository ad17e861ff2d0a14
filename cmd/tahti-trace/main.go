package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vsariola/tahti/engine"
	"github.com/vsariola/tahti/session"
	"github.com/vsariola/tahti/synth"
	"github.com/vsariola/tahti/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	patchName := flag.String("patch", "", "Name of the preset patch to run with. Overrides the patch named in the script.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	retval := 0
	for _, param := range flag.Args() {
		if err := trace(param, *patchName); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func trace(filename, patchName string) error {
	script, err := session.Load(filename)
	if err != nil {
		return err
	}
	patch := synth.Default()
	name := script.Patch
	if patchName != "" {
		name = patchName
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
	report, err := session.Report(log)
	if err != nil {
		return fmt.Errorf("session.Report failed: %v", err)
	}
	fmt.Print(report)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Tahti command line utility for tracing session script files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
