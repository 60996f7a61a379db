package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BertoldVdb/mecha-tools/knowndumps"
	"github.com/BertoldVdb/mecha-tools/mechacrypto"
	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/cheggaaa/pb/v3"
	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

const progressTemplate = `{{string . "page" | blue}} {{bar . }} {{speed . | green }} {{percent .}} {{etime .}}`

type DumpROMCmd struct {
	Filename string `arg optional help:"File to write dump to, defaults to a name derived from the version."`
	Hex      bool   `optional help:"Write Intel HEX instead of a raw binary."`
	Keystore string `optional help:"Also dump the key store to this file."`
}

func (d *DumpROMCmd) Run(c *Context) error {
	payload, err := c.payload(payloadFastDump)
	if err != nil {
		return err
	}

	version, err := c.hal.GetVersion()
	if err != nil {
		return err
	}
	if !version.Compatible() {
		return errors.Errorf("Mechacon %s is not supported", version)
	}

	filename := d.Filename
	if filename == "" {
		filename = version.DumpFilename()
		if d.Hex {
			filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".hex"
		}
	}

	/* The first injection scans RAM, the key store dump goes first so the
	 * ROM dump can reuse the address */
	if d.Keystore != "" {
		if err := dumpKeystore(c, d.Keystore); err != nil {
			return err
		}
	}

	rom, err := dumpROM(c, payload)
	if err != nil {
		return err
	}

	if d.Hex {
		err = writeHex(filename, mechahal.ROMBase, rom)
	} else {
		err = os.WriteFile(filename, rom, 0644)
	}
	if err != nil {
		return err
	}
	fmt.Printf("ROM dumped to %s\n", filename)

	reportDigest(c, mechacrypto.SHA256Sum(rom))
	return nil
}

func dumpROM(c *Context, payload []byte) ([]byte, error) {
	var bar *pb.ProgressBar

	rom, err := c.hal.DumpROM(c.ctx, payload, func(done int, total int) bool {
		if bar == nil {
			bar = pb.New(total)
			bar.SetTemplateString(progressTemplate)
			bar.Set(pb.Bytes, true)
			bar.Start()
		}
		bar.Set("page", fmt.Sprintf("%05x", done))
		bar.SetCurrent(int64(done))
		return true
	})

	if bar != nil {
		bar.Finish()
	}
	return rom, err
}

func writeHex(filename string, base uint32, data []byte) error {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(base, data); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := mem.DumpIntelHex(f, 16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func reportDigest(c *Context, digest [mechacrypto.SHA256Size]byte) {
	fmt.Printf("SHA-256: %s\n", hex.EncodeToString(digest[:]))

	table, err := knowndumps.Load()
	if err != nil {
		c.log.Warnw("Known dump table unavailable", "error", err)
		return
	}

	if dump, ok := table.Lookup(digest); ok {
		fmt.Printf("Known dump: %s\n", dump)
	} else {
		fmt.Println("Unknown version! Please share it.")
	}
}

type DumpKeystoreCmd struct {
	Filename string `arg optional default:"mechacon-keystore.bin" help:"File to write the key store to."`
}

func (d *DumpKeystoreCmd) Run(c *Context) error {
	return dumpKeystore(c, d.Filename)
}

func dumpKeystore(c *Context, filename string) error {
	payload, err := c.payload(payloadKeystore)
	if err != nil {
		return err
	}

	keystore, err := c.hal.DumpKeystore(c.ctx, payload)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, keystore, 0600); err != nil {
		return err
	}
	fmt.Printf("Key store dumped to %s\n", filename)
	return nil
}

type HashCmd struct {
	Filename string `arg help:"ROM dump to check." type:"existingfile"`
}

func (h *HashCmd) Run(c *Context) error {
	f, err := os.Open(h.Filename)
	if err != nil {
		return err
	}
	defer f.Close()

	s := mechacrypto.NewSHA256()
	if _, err := io.Copy(s, f); err != nil {
		return err
	}

	reportDigest(c, s.Finish())
	return nil
}
