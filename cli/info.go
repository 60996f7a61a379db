package main

import (
	"fmt"
	"time"

	"github.com/BertoldVdb/mecha-tools/mechacrypto"
	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/BertoldVdb/mecha-tools/mechahal/nvm"
	"github.com/pkg/errors"
)

type InfoCmd struct {
}

func (i *InfoCmd) Run(c *Context) error {
	model, err := c.hal.GetModelString()
	if err != nil {
		return err
	}
	fmt.Printf("Model:            %s\n", model)

	version, err := c.hal.GetVersion()
	if err != nil {
		return err
	}
	fmt.Printf("Mechacon version: %s\n", version)
	if !version.Compatible() {
		return errors.Errorf("Mechacon %d.%02d is not a Dragon, the back door is not available", version.Major, version.Minor)
	}

	image := make([]byte, mechahal.NVMSize)
	if err := c.hal.ReadNVM(0, image); err != nil {
		return errors.Wrap(err, "Could not read NVM")
	}
	fmt.Printf("Patchset CRC32:   %08X\n", mechacrypto.CRC32(image[nvm.PatchOffset:nvm.PatchOffset+nvm.PatchWindowSize]))

	active, err := c.hal.Probe()
	if err != nil {
		return err
	}
	fmt.Printf("Back door:        %s\n", activeString(active))

	codec, err := c.codec()
	if err != nil {
		c.log.Warnw("Secret keys unavailable, region and patch state not decoded", "error", err)
		return nil
	}

	if flags, err := codec.DecodeRegionFlags(image); err != nil {
		c.log.Debugw("Region decode failed", "error", err)
		fmt.Printf("Region code:      UNKNOWN\n")
	} else {
		fmt.Printf("Region code:      %08X  %s\n", flags, nvm.RegionFlagsString(flags))
	}

	classifier, err := c.classifier()
	if err != nil {
		return err
	}
	state, err := classifier.Classify(image)
	if err != nil {
		return err
	}
	fmt.Printf("Patch state:      %s\n", state)

	return nil
}

func activeString(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

type ProbeCmd struct {
	Wait     bool          `optional help:"Keep polling until the back door becomes active."`
	Interval time.Duration `optional default:"1s" help:"Polling interval."`
}

func (p *ProbeCmd) Run(c *Context) error {
	if p.Wait {
		fmt.Println("Waiting for the back door, insert a disc if the CD protect hook is installed...")
		if err := c.hal.WaitForBackDoor(c.ctx, p.Interval); err != nil {
			return err
		}
	}

	active, err := c.hal.Probe()
	if err != nil {
		return err
	}
	fmt.Printf("Back door %s\n", activeString(active))
	return nil
}

type ResetCmd struct {
}

func (r *ResetCmd) Run(c *Context) error {
	outcome, err := c.hal.ResetAndPowerOff()
	if err != nil {
		return err
	}
	reportOutcome(outcome)
	return nil
}

func reportOutcome(outcome mechahal.Outcome) {
	if outcome == mechahal.OutcomeTerminal {
		fmt.Println("The controller has been reset and will power off.")
		fmt.Println("If it does not, unplug the console and wait for the red light to go out.")
	}
}
