//go:build puregohid
// +build puregohid

package main

import (
	"github.com/BertoldVdb/mecha-tools/config"
	"github.com/BertoldVdb/mecha-tools/gohid"
	"github.com/pkg/errors"
)

func initHID() error {
	return nil
}

func exitHID() {
}

func OpenDevice(t config.Transport) (gohid.HIDDevice, error) {
	if t.RawPath == "" {
		return nil, errors.New("RawPath must be specified when using pure GO HID")
	}

	return gohid.OpenHID(t.RawPath)
}

type ListHIDCmd struct {
}

func (l *ListHIDCmd) Run(c *Context) error {
	return errors.New("This command is not supported using pure GO HID")
}
