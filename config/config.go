// Package config loads the tool configuration: secret keys, payload and patch
// files, transport selection and retry policy.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BertoldVdb/mecha-tools/mechacrypto"
	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "mecha-tools"
	configFile = "config.yaml"
)

var (
	ErrorInvalidTransport = errors.New("Transport must be hid, serial or sim")
	ErrorInvalidValue     = errors.New("Invalid configuration value")
	ErrorNotConfigured    = errors.New("File not configured")
)

type Keys struct {
	MechaPatch  string `yaml:"mecha_patch"`
	GlobalFlags string `yaml:"global_flags"`
}

// Payloads are the ARM code blobs that get injected into controller RAM.
type Payloads struct {
	FastDump     string `yaml:"fastdump"`
	KeystoreDump string `yaml:"keystoredump"`
	WriteNVM     string `yaml:"writenvm"`
}

// Patches are the known back door patch windows, used to classify NVM.
type Patches struct {
	IRQHook       string `yaml:"irq_hook"`
	CDProtectHook string `yaml:"cdprotect_hook"`
}

type Transport struct {
	Kind    string `yaml:"kind"`
	VID     int    `yaml:"vid"`
	PID     int    `yaml:"pid"`
	Serial  string `yaml:"serial"`
	RawPath string `yaml:"raw_path"`
	Port    string `yaml:"port"`
	Baud    int    `yaml:"baud"`
}

type Config struct {
	Keys      Keys      `yaml:"keys"`
	Payloads  Payloads  `yaml:"payloads"`
	Patches   Patches   `yaml:"patches"`
	Transport Transport `yaml:"transport"`

	/* 0 retries forever */
	NVMBusyRetries int    `yaml:"nvm_busy_retries"`
	LogLevel       string `yaml:"log_level"`

	/* Region block checksums skip byte 8, as mechadump computes them */
	LegacyBlockChecksum bool `yaml:"legacy_block_checksum"`

	/* Relative paths are resolved against the directory of the config file */
	dir string
}

func Default() *Config {
	return &Config{
		Transport: Transport{
			Kind: "hid",
			VID:  0x1209,
			PID:  0x4D43,
			Baud: 115200,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/mecha-tools/config.yaml or its
// equivalent on this platform.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine config directory")
	}
	return filepath.Join(dir, appName, configFile), nil
}

// Parse reads YAML on top of the defaults.
func Parse(data []byte, dir string) (*Config, error) {
	c := Default()
	c.dir = dir

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the config at path. An empty path tries the default location
// and falls back to the defaults if nothing is there.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	return Parse(data, filepath.Dir(path))
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Transport.Kind) {
	case "hid", "serial", "sim":
	default:
		return errors.Wrapf(ErrorInvalidTransport, "got %q", c.Transport.Kind)
	}

	if c.Transport.Baud <= 0 {
		return errors.Wrapf(ErrorInvalidValue, "baud %d", c.Transport.Baud)
	}
	if c.NVMBusyRetries < 0 {
		return errors.Wrapf(ErrorInvalidValue, "nvm_busy_retries %d", c.NVMBusyRetries)
	}
	return nil
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// SecretKeys parses and verifies the configured keys. Keys left empty fall
// back to the values built into the binary.
func (c *Config) SecretKeys() (mechacrypto.Keys, error) {
	return mechacrypto.LoadKeys(c.Keys.MechaPatch, c.Keys.GlobalFlags)
}

// LoadBinary reads a raw binary, or an Intel HEX file if the name ends in
// .hex. HEX files are flattened from their lowest address with 0xFF gaps.
func (c *Config) LoadBinary(name string, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.Wrapf(ErrorNotConfigured, "%s", name)
	}
	path = c.resolve(path)

	if !strings.EqualFold(filepath.Ext(path), ".hex") {
		data, err := os.ReadFile(path)
		return data, errors.Wrapf(err, "%s", name)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	defer file.Close()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(file); err != nil {
		return nil, errors.Wrapf(err, "%s: parse %s", name, path)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, errors.Errorf("%s: %s holds no data", name, path)
	}

	start := segments[0].Address
	end := start
	for _, s := range segments {
		if s.Address < start {
			start = s.Address
		}
		if e := s.Address + uint32(len(s.Data)); e > end {
			end = e
		}
	}
	return mem.ToBinary(start, end-start, 0xFF), nil
}

func (c *Config) FastDumpPayload() ([]byte, error) {
	return c.LoadBinary("fastdump payload", c.Payloads.FastDump)
}

func (c *Config) KeystoreDumpPayload() ([]byte, error) {
	return c.LoadBinary("keystoredump payload", c.Payloads.KeystoreDump)
}

func (c *Config) WriteNVMPayload() ([]byte, error) {
	return c.LoadBinary("writenvm payload", c.Payloads.WriteNVM)
}

// PatchReferences returns the configured patch windows. Missing entries are
// returned as nil.
func (c *Config) PatchReferences() (irqHook []byte, cdProtectHook []byte, err error) {
	if c.Patches.IRQHook != "" {
		if irqHook, err = c.LoadBinary("irq hook patch", c.Patches.IRQHook); err != nil {
			return nil, nil, err
		}
	}
	if c.Patches.CDProtectHook != "" {
		if cdProtectHook, err = c.LoadBinary("cdprotect hook patch", c.Patches.CDProtectHook); err != nil {
			return nil, nil, err
		}
	}
	return irqHook, cdProtectHook, nil
}
