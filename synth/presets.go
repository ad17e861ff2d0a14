package synth

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed presets/*.yml
var presetFS embed.FS

var (
	presetsOnce sync.Once
	presets     []Patch
)

// Presets returns all loadable patches, builtin ones first, then any
// found under the user config directory, sorted by name. Files that do
// not parse or do not validate are skipped.
func Presets() []Patch {
	presetsOnce.Do(func() {
		presets = loadPresetsFromFs(presetFS, presets)
		if configDir, err := os.UserConfigDir(); err == nil {
			userPresets := filepath.Join(configDir, "tahti")
			presets = loadPresetsFromFs(os.DirFS(userPresets), presets)
		}
		sort.Slice(presets, func(i, j int) bool {
			return presets[i].Name < presets[j].Name
		})
	})
	return presets
}

// Preset looks up a patch by name, case insensitively.
func Preset(name string) (Patch, bool) {
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Patch{}, false
}

func loadPresetsFromFs(fsys fs.FS, into []Patch) []Patch {
	fs.WalkDir(fsys, "presets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil
		}
		var patch Patch
		if yaml.UnmarshalStrict(data, &patch) == nil {
			if patch.Name == "" {
				noExt := path[:len(path)-len(filepath.Ext(path))]
				patch.Name = filenameToPatchName(filepath.Base(noExt))
			}
			if patch.Validate() == nil {
				into = append(into, patch)
			}
		}
		return nil
	})
	return into
}

func filenameToPatchName(filename string) string {
	return strings.ReplaceAll(filename, "_", " ")
}
