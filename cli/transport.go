package main

import (
	"github.com/BertoldVdb/mecha-tools/bridge"
	"github.com/BertoldVdb/mecha-tools/config"
	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/BertoldVdb/mecha-tools/mechahal/mechasim"
	"github.com/pkg/errors"
)

type payloadKind int

const (
	payloadFastDump payloadKind = iota
	payloadKeystore
	payloadWriteNVM
)

var simBehavior = map[payloadKind]mechasim.Behavior{
	payloadFastDump: mechasim.BehaviorFastDump,
	payloadKeystore: mechasim.BehaviorKeystore,
	payloadWriteNVM: mechasim.BehaviorWriteNVM,
}

/* Stand-ins used by the simulator when no real payload is configured */
func simPayload(kind payloadKind) []byte {
	p := make([]byte, 32)
	copy(p, "mecha-tools simulated payload")
	p[31] = byte(kind)
	return p
}

func openTransport(c *Context) (mechahal.Transport, error) {
	t := c.cfg.Transport

	switch t.Kind {
	case "hid":
		if err := initHID(); err != nil {
			return nil, err
		}
		dev, err := OpenDevice(t)
		if err != nil {
			exitHID()
			return nil, errors.Wrap(err, "open HID bridge")
		}
		b := bridge.NewHID(dev)
		c.dev = closerFunc(func() error {
			defer exitHID()
			return b.Close()
		})
		return b, nil

	case "serial":
		if t.Port == "" {
			return nil, errors.Wrap(config.ErrorNotConfigured, "serial port")
		}
		b, err := bridge.OpenSerial(t.Port, t.Baud)
		if err != nil {
			return nil, err
		}
		c.dev = b
		return b, nil

	case "sim":
		c.sim = mechasim.New(1)
		for kind, behavior := range simBehavior {
			p, err := c.payload(kind)
			if err != nil {
				return nil, err
			}
			c.sim.Register(behavior, p)
		}
		c.log.Warn("Using the simulated controller")
		return c.sim, nil
	}

	return nil, errors.Wrapf(config.ErrorInvalidTransport, "got %q", t.Kind)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// payload loads one of the configured payloads. The simulator falls back to
// a stand-in when the payload is not configured.
func (c *Context) payload(kind payloadKind) ([]byte, error) {
	var data []byte
	var err error

	switch kind {
	case payloadFastDump:
		data, err = c.cfg.FastDumpPayload()
	case payloadKeystore:
		data, err = c.cfg.KeystoreDumpPayload()
	case payloadWriteNVM:
		data, err = c.cfg.WriteNVMPayload()
	}

	if c.sim != nil && errors.Is(err, config.ErrorNotConfigured) {
		return simPayload(kind), nil
	}
	return data, err
}
