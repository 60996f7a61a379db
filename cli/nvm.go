package main

import (
	"fmt"
	"os"

	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/pkg/errors"
)

type BackupNVMCmd struct {
	Filename string `arg optional default:"mechadump_eeprom_backup.bin" help:"File to write the NVM image to."`
	Force    bool   `optional help:"Back up even when a back door patch is installed."`
}

func (b *BackupNVMCmd) Run(c *Context) error {
	image := make([]byte, mechahal.NVMSize)
	if err := c.hal.ReadNVM(0, image); err != nil {
		return err
	}

	/* A backup taken with the patch installed would restore the patch */
	if classifier, err := c.classifier(); err != nil {
		c.log.Warnw("Cannot check patch state", "error", err)
	} else if state, err := classifier.Classify(image); err == nil && state.BackDoorInstalled() && !b.Force {
		return errors.Errorf("NVM holds the %s patch, refusing to back it up (use --force)", state)
	}

	if err := os.WriteFile(b.Filename, image, 0644); err != nil {
		return err
	}
	fmt.Printf("NVM backed up to %s\n", b.Filename)
	return nil
}

type RestoreNVMCmd struct {
	Filename string `arg optional default:"mechadump_eeprom_backup.bin" help:"NVM backup to restore." type:"existingfile"`
	Yes      bool   `optional help:"Do not ask for confirmation."`
}

func (r *RestoreNVMCmd) Run(c *Context) error {
	image, err := os.ReadFile(r.Filename)
	if err != nil {
		return err
	}
	if len(image) != mechahal.NVMSize {
		return errors.Errorf("%s is %d bytes, expected a %d byte NVM image", r.Filename, len(image), mechahal.NVMSize)
	}

	payload, err := c.payload(payloadWriteNVM)
	if err != nil {
		return err
	}

	if !r.Yes && !confirm(fmt.Sprintf("Restore the NVM configuration from %s?", r.Filename)) {
		return nil
	}

	outcome, err := c.hal.RestoreNVM(c.ctx, payload, image[mechahal.NVMConfigOffset:])
	if err != nil {
		return errors.Wrap(err, "RESTORE FAILED, the NVM may be partially written")
	}

	fmt.Println("Restore successful.")
	reportOutcome(outcome)
	return nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)

	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
