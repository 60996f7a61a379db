//go:build !puregohid
// +build !puregohid

package main

import (
	"fmt"
	"os"

	"github.com/BertoldVdb/mecha-tools/config"
	"github.com/BertoldVdb/mecha-tools/gohid"
	"github.com/pkg/errors"
	"github.com/sstallion/go-hid"
)

var errorFound = errors.New("Done")

func initHID() error {
	return errors.Wrap(hid.Init(), "init hidapi")
}

func exitHID() {
	hid.Exit()
}

func SearchDevice(t config.Transport, foundHandler func(info *hid.DeviceInfo) error) error {
	return hid.Enumerate(uint16(t.VID), uint16(t.PID), func(info *hid.DeviceInfo) error {
		if t.Serial != "" && info.SerialNbr != t.Serial {
			return nil
		}
		if t.RawPath != "" && info.Path != t.RawPath {
			return nil
		}

		return foundHandler(info)
	})
}

func OpenDevice(t config.Transport) (gohid.HIDDevice, error) {
	var dev *hid.Device
	err := SearchDevice(t, func(info *hid.DeviceInfo) error {
		d, err := hid.Open(info.VendorID, info.ProductID, info.SerialNbr)
		if err == nil {
			dev = d
			return errorFound
		}
		return err
	})
	if dev != nil {
		return dev, nil
	}
	if err == nil {
		err = os.ErrNotExist
	}

	return nil, err
}

type ListHIDCmd struct {
}

func (l *ListHIDCmd) Run(c *Context) error {
	if err := initHID(); err != nil {
		return err
	}
	defer exitHID()

	return SearchDevice(c.cfg.Transport, func(info *hid.DeviceInfo) error {
		fmt.Printf("%s: ID %04x:%04x %s %s\n",
			info.Path, info.VendorID, info.ProductID, info.MfrStr, info.ProductStr)
		fmt.Printf("\tSerialNbr    %s\n", info.SerialNbr)
		fmt.Printf("\tReleaseNbr   %x.%x\n", info.ReleaseNbr>>8, info.ReleaseNbr&0xff)
		fmt.Printf("\tInterfaceNbr %d\n", info.InterfaceNbr)
		fmt.Println()

		return nil
	})
}
