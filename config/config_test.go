package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), c, cmp.AllowUnexported(Config{})); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOverrides(t *testing.T) {
	doc := `
keys:
  mecha_patch: "0x0102030405060708"
payloads:
  fastdump: payloads/fastdump.bin
transport:
  kind: serial
  port: /dev/ttyUSB0
  baud: 57600
nvm_busy_retries: 50
log_level: debug
legacy_block_checksum: true
`
	c, err := Parse([]byte(doc), "/etc/mecha")
	if err != nil {
		t.Fatal(err)
	}

	if c.Transport.Kind != "serial" || c.Transport.Port != "/dev/ttyUSB0" || c.Transport.Baud != 57600 {
		t.Errorf("transport = %+v", c.Transport)
	}
	if c.Transport.VID != 0x1209 {
		t.Errorf("unset VID lost its default: %#x", c.Transport.VID)
	}
	if c.NVMBusyRetries != 50 || c.LogLevel != "debug" || !c.LegacyBlockChecksum {
		t.Errorf("retries %d level %q legacy %v", c.NVMBusyRetries, c.LogLevel, c.LegacyBlockChecksum)
	}
	if got := c.resolve(c.Payloads.FastDump); got != "/etc/mecha/payloads/fastdump.bin" {
		t.Errorf("resolve = %q", got)
	}
	if got := c.resolve("/abs/x.bin"); got != "/abs/x.bin" {
		t.Errorf("absolute path changed: %q", got)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"transport", "transport:\n  kind: usb\n", ErrorInvalidTransport},
		{"retries", "nvm_busy_retries: -1\n", ErrorInvalidValue},
		{"baud", "transport:\n  baud: 0\n", ErrorInvalidValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), "")
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := Parse([]byte("bogus_field: 1\n"), ""); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing file accepted")
	}

	p := writeFile(t, dir, "config.yaml", []byte("log_level: warn\n"))
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.LogLevel != "warn" || c.dir != dir {
		t.Errorf("level %q dir %q", c.LogLevel, c.dir)
	}
}

func TestLoadBinaryRaw(t *testing.T) {
	dir := t.TempDir()
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	writeFile(t, dir, "payload.bin", data)

	c := Default()
	c.dir = dir
	c.Payloads.KeystoreDump = "payload.bin"

	got, err := c.KeystoreDumpPayload()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.WriteNVMPayload(); !errors.Is(err, ErrorNotConfigured) {
		t.Errorf("unset payload: %v", err)
	}
}

func TestLoadBinaryHex(t *testing.T) {
	dir := t.TempDir()

	mem := gohex.NewMemory()
	if err := mem.AddBinary(0x100, []byte{0xAA, 0xBB}); err != nil {
		t.Fatal(err)
	}
	if err := mem.AddBinary(0x104, []byte{0xCC}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := mem.DumpIntelHex(&buf, 16); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "payload.HEX", buf.Bytes())

	c := Default()
	c.dir = dir
	c.Payloads.FastDump = "payload.HEX"

	got, err := c.FastDumpPayload()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xAA, 0xBB, 0xFF, 0xFF, 0xCC}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hex payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchReferences(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "irq.bin", []byte{1, 2})

	c := Default()
	c.dir = dir
	c.Patches.IRQHook = "irq.bin"

	irq, cdp, err := c.PatchReferences()
	if err != nil {
		t.Fatal(err)
	}
	if len(irq) != 2 || cdp != nil {
		t.Errorf("irq %x cdp %x", irq, cdp)
	}

	c.Patches.CDProtectHook = "missing.bin"
	if _, _, err := c.PatchReferences(); err == nil {
		t.Error("missing patch file accepted")
	}
}
