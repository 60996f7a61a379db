// Package knowndumps identifies ROM dumps that have been seen before.
package knowndumps

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed known_dumps.yaml
var knownDumpsYAML []byte

type Digest [32]byte

type Dump struct {
	Version string `yaml:"version"`
	Variant string `yaml:"variant"`
	Chip    string `yaml:"chip"`
	SHA256  string `yaml:"sha256"`

	digest Digest
}

func (d *Dump) Digest() Digest {
	return d.digest
}

func (d *Dump) String() string {
	if d.Variant != "" {
		return fmt.Sprintf("%s %s (%s)", d.Version, d.Variant, d.Chip)
	}
	return fmt.Sprintf("%s (%s)", d.Version, d.Chip)
}

// Table is an ordered list of known dumps. Matching is by exact digest only.
type Table struct {
	Dumps []*Dump `yaml:"dumps"`
}

var (
	globalTable     *Table
	globalTableOnce sync.Once
	globalTableErr  error
)

// Load parses the embedded table once and returns it.
func Load() (*Table, error) {
	globalTableOnce.Do(func() {
		globalTable, globalTableErr = Parse(knownDumpsYAML)
	})
	return globalTable, globalTableErr
}

func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "failed to parse known dump table")
	}

	for _, d := range t.Dumps {
		raw, err := hex.DecodeString(d.SHA256)
		if err != nil || len(raw) != len(d.digest) {
			return nil, errors.Errorf("dump %s: invalid digest %q", d.Version, d.SHA256)
		}
		copy(d.digest[:], raw)
	}

	return &t, nil
}

func (t *Table) Lookup(d Digest) (*Dump, bool) {
	for _, dump := range t.Dumps {
		if dump.digest == d {
			return dump, true
		}
	}
	return nil, false
}

func (t *Table) IsKnown(d Digest) bool {
	_, ok := t.Lookup(d)
	return ok
}

// IsKnownDump checks d against the embedded table.
func IsKnownDump(d Digest) bool {
	t, err := Load()
	if err != nil {
		return false
	}
	return t.IsKnown(d)
}
