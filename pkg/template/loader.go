// loader.go — Load template files, directories and .signpack (ZIP) bundles.
package template

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BundleExt is the file extension of a zipped template bundle.
const BundleExt = ".signpack"

// ParseSpecs decodes one spec or a list of specs. ext selects the codec:
// ".json" uses encoding/json, ".yaml" and ".yml" use YAML. Every decoded
// spec must pass Validate.
func ParseSpecs(data []byte, ext string) ([]Spec, error) {
	var specs []Spec
	switch strings.ToLower(ext) {
	case ".json":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &specs); err != nil {
				return nil, fmt.Errorf("parse templates: %w", err)
			}
		} else {
			var s Spec
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return nil, fmt.Errorf("parse template: %w", err)
			}
			specs = []Spec{s}
		}
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("parse templates: empty document")
		}
		root := node.Content[0]
		if root.Kind == yaml.SequenceNode {
			if err := root.Decode(&specs); err != nil {
				return nil, fmt.Errorf("parse templates: %w", err)
			}
		} else {
			var s Spec
			if err := root.Decode(&s); err != nil {
				return nil, fmt.Errorf("parse template: %w", err)
			}
			specs = []Spec{s}
		}
	default:
		return nil, fmt.Errorf("unsupported template format %q: use .json, .yaml or .yml", ext)
	}

	for i := range specs {
		if err := Validate(&specs[i]); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// LoadFile reads and parses a template file.
func LoadFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	specs, err := ParseSpecs(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// LoadDir parses every template file directly inside dir.
func LoadDir(dir string) ([]Spec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var all []Spec
	for _, e := range entries {
		if e.IsDir() || !isSpecFile(e.Name()) {
			continue
		}
		specs, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, specs...)
	}
	return all, nil
}

// Bundle is an extracted .signpack archive.
type Bundle struct {
	Specs    []Spec
	FontPath string // custom TTF, empty when the bundle ships none
}

// LoadBundle opens a .signpack ZIP, extracts it to a temp directory and
// parses templates.yaml (or templates.json). The first fonts/*.ttf found is
// exposed as FontPath. The returned cleanup function removes the temp
// directory.
func LoadBundle(path string) (*Bundle, func(), error) {
	noop := func() {}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, noop, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	tmpDir, err := os.MkdirTemp("", "signpack-*")
	if err != nil {
		return nil, noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := extractZip(&r.Reader, tmpDir); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("extract %s: %w", path, err)
	}

	var b Bundle
	for _, name := range []string{"templates.yaml", "templates.yml", "templates.json"} {
		p := filepath.Join(tmpDir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if b.Specs, err = LoadFile(p); err != nil {
			cleanup()
			return nil, noop, err
		}
		break
	}
	if b.Specs == nil {
		cleanup()
		return nil, noop, fmt.Errorf("%s: no templates.yaml or templates.json in bundle", path)
	}

	fonts, _ := filepath.Glob(filepath.Join(tmpDir, "fonts", "*.ttf"))
	if len(fonts) > 0 {
		b.FontPath = fonts[0]
	}
	return &b, cleanup, nil
}

// Load resolves path to templates: a bundle, a directory or a single file.
// The cleanup function is always safe to call.
func Load(path string) ([]Spec, string, func(), error) {
	noop := func() {}
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", noop, err
	}
	switch {
	case info.IsDir():
		specs, err := LoadDir(path)
		return specs, "", noop, err
	case strings.EqualFold(filepath.Ext(path), BundleExt):
		b, cleanup, err := LoadBundle(path)
		if err != nil {
			return nil, "", noop, err
		}
		return b.Specs, b.FontPath, cleanup, nil
	default:
		specs, err := LoadFile(path)
		return specs, "", noop, err
	}
}

func isSpecFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// extractZip extracts all files from a zip reader into destDir.
func extractZip(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)

		// Guard against zip slip.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// extractFile writes a single zip entry to disk.
func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
