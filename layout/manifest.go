// Package layout loads compiler-emitted class layout manifests and keeps
// the process-wide descriptor-table registry. A manifest is the contract
// file between the compiler's field-layout decisions and this runtime.
package layout

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Manifest is one parsed class layout file.
type Manifest struct {
	Class ClassSection `toml:"class"`
	Attrs []AttrEntry  `toml:"attr"`

	// Path is the file the manifest was loaded from, for error messages
	// (empty when parsed from memory).
	Path string `toml:"-"`
}

// ClassSection carries the per-class line of the manifest.
type ClassSection struct {
	// Name is the concrete class name as reported in attribute errors.
	Name string `toml:"name"`
	// Size is the field-region size in bytes, bitmap words included.
	Size uint32 `toml:"size"`
}

// AttrEntry describes one attribute as emitted by the compiler.
// BitmapOffset/BitmapBit are pointers so that an absent slot is
// distinguishable from a slot at word 0, bit 0.
type AttrEntry struct {
	Name          string  `toml:"name"`
	Repr          string  `toml:"repr"`
	Offset        uint32  `toml:"offset"`
	Deletable     bool    `toml:"deletable"`
	AlwaysDefined bool    `toml:"always-defined"`
	BitmapOffset  *uint32 `toml:"bitmap-offset"`
	BitmapBit     *uint32 `toml:"bitmap-bit"`
	Class         string  `toml:"class"`
	Nullable      bool    `toml:"nullable"`
}

// Load parses a layout manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse parses a layout manifest from memory.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
