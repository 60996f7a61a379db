package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BertoldVdb/mecha-tools/mechacrypto"
	"github.com/BertoldVdb/mecha-tools/mechahal/nvm"
	"github.com/pkg/errors"
)

type PatchCmd struct {
	Verify    PatchVerifyCmd    `cmd help:"Check the checksums of a patch window or NVM image."`
	Decrypt   PatchDecryptCmd   `cmd help:"Decrypt a patch window."`
	Encrypt   PatchEncryptCmd   `cmd help:"Encrypt a patch window."`
	Region    PatchRegionCmd    `cmd help:"Decode the region of an NVM image."`
	RegionSet PatchRegionSetCmd `cmd name:"region-set" help:"Write a new region record into a copy of an NVM image."`
}

func readWindow(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return nvm.ExtractPatchWindow(data)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type PatchVerifyCmd struct {
	Filename string `arg help:"Patch window (0xE0 bytes) or NVM image (0x400 bytes)." type:"existingfile"`
}

func (p *PatchVerifyCmd) Run(c *Context) error {
	codec, err := c.codec()
	if err != nil {
		return err
	}

	window, err := readWindow(p.Filename)
	if err != nil {
		return err
	}

	report, err := codec.VerifyPatch(window)
	if err != nil {
		return err
	}

	fmt.Printf("CRC32:                   %08X\n", mechacrypto.CRC32(window))
	fmt.Printf("Has data:                %s\n", yesNo(report.HasData))
	fmt.Printf("Write config compatible: %s\n", yesNo(report.WriteConfigCompatible))
	fmt.Printf("Block checksums:         %s\n", yesNo(report.BlockChecksumsOK))
	fmt.Printf("Address checksum:        %s\n", yesNo(report.AddressChecksumOK))

	if irq, cdp, err := c.cfg.PatchReferences(); err == nil {
		state, _ := codec.NewClassifier(irq, cdp).Classify(window)
		fmt.Printf("State:                   %s\n", state)
	}

	if !report.Valid() {
		return errors.New("Patch is not valid")
	}
	return nil
}

type PatchDecryptCmd struct {
	Input  string `arg help:"Patch window or NVM image." type:"existingfile"`
	Output string `arg help:"File to write the 0xD8 byte payload to."`
}

func (p *PatchDecryptCmd) Run(c *Context) error {
	codec, err := c.codec()
	if err != nil {
		return err
	}

	window, err := readWindow(p.Input)
	if err != nil {
		return err
	}

	plain, err := codec.DecryptPatch(window)
	if err != nil {
		return err
	}
	return os.WriteFile(p.Output, plain, 0644)
}

type PatchEncryptCmd struct {
	Input  string `arg help:"Payload of at most 0xD8 bytes." type:"existingfile"`
	Output string `arg help:"File to write the patch window to."`

	FixupRows bool `optional name:"fixup-rows" help:"Adjust padding so every row can be written with the configuration command."`
}

func (p *PatchEncryptCmd) Run(c *Context) error {
	codec, err := c.codec()
	if err != nil {
		return err
	}

	plain, err := os.ReadFile(p.Input)
	if err != nil {
		return err
	}

	window, err := codec.EncryptPatch(plain, p.FixupRows)
	if err != nil {
		return err
	}

	report, err := codec.VerifyPatch(window)
	if err != nil {
		return err
	}
	if p.FixupRows && !report.WriteConfigCompatible {
		c.log.Warn("Not every row could be made write config compatible")
	}

	return os.WriteFile(p.Output, window, 0644)
}

type PatchRegionCmd struct {
	Filename string `arg help:"NVM image." type:"existingfile"`
}

func (p *PatchRegionCmd) Run(c *Context) error {
	codec, err := c.codec()
	if err != nil {
		return err
	}

	image, err := os.ReadFile(p.Filename)
	if err != nil {
		return err
	}

	flags, err := codec.DecodeRegionFlags(image)
	if err != nil {
		return err
	}
	fmt.Printf("Region code: %08X  %s\n", flags, nvm.RegionFlagsString(flags))
	return nil
}

type PatchRegionSetCmd struct {
	Input  string `arg help:"NVM image." type:"existingfile"`
	Output string `arg help:"File to write the modified image to."`
	Flags  int    `arg type:"hex" help:"Region flags."`

	Nonce int    `optional type:"hex" help:"Record nonce."`
	Seed  string `optional help:"8 byte key seed as hex, defaults to the seed already in the image."`
}

func (p *PatchRegionSetCmd) Run(c *Context) error {
	codec, err := c.codec()
	if err != nil {
		return err
	}

	image, err := os.ReadFile(p.Input)
	if err != nil {
		return err
	}

	seed, err := nvm.RegionSeed(image)
	if err != nil {
		return err
	}
	if p.Seed != "" {
		s, err := hex.DecodeString(p.Seed)
		if err != nil {
			return err
		}
		if len(s) != len(seed) {
			return errors.Errorf("Seed must be %d bytes", len(seed))
		}
		copy(seed[:], s)
	}

	if err := codec.EncodeRegionFlags(image, uint32(p.Flags), uint16(p.Nonce), seed); err != nil {
		return err
	}

	flags, err := codec.DecodeRegionFlags(image)
	if err != nil {
		return err
	}
	fmt.Printf("New region code: %08X  %s\n", flags, nvm.RegionFlagsString(flags))

	return os.WriteFile(p.Output, image, 0644)
}
