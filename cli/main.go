package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/BertoldVdb/mecha-tools/config"
	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/BertoldVdb/mecha-tools/mechahal/mechasim"
	"github.com/BertoldVdb/mecha-tools/mechahal/nvm"
	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

type Context struct {
	ctx context.Context
	cfg *config.Config
	log *zap.SugaredLogger

	hal    *mechahal.HAL
	dev    io.Closer
	sim    *mechasim.Controller
	halLog mechahal.LogFunc
}

var CLI struct {
	Config    string `optional help:"Configuration file, defaults to the user config directory."`
	Transport string `optional help:"Bridge type: hid, serial or sim."`

	VID     int    `optional type:"hex" help:"The USB Vendor ID of the bridge."`
	PID     int    `optional type:"hex" help:"The USB Product ID of the bridge."`
	Serial  string `optional help:"The USB Serial."`
	RawPath string `optional help:"The USB Device Path."`

	Port string `optional help:"Serial port of the bridge."`
	Baud int    `optional help:"Serial port baud rate."`

	LogLevel string `optional help:"debug, info, warn or error."`
	HALLevel int    `optional name:"hal-level" help:"Higher values give more HAL output (3 shows all commands)." default:"1"`

	ListDev ListHIDCmd `cmd help:"List bridge devices."`

	Info  InfoCmd  `cmd help:"Show controller version, model, region and patch state."`
	Probe ProbeCmd `cmd help:"Check if the back door is active."`
	Raw   RawCmd   `cmd help:"Send a raw S-command."`

	ListRegions MEMIOListRegions `cmd help:"List available memory regions."`
	Read        MEMIOReadCmd     `cmd help:"Read and dump memory."`

	DumpROM      DumpROMCmd      `cmd name:"dump-rom" help:"Dump the controller ROM using the fastdump payload."`
	DumpKeystore DumpKeystoreCmd `cmd name:"dump-keystore" help:"Dump the key store using the keystoredump payload."`
	BackupNVM    BackupNVMCmd    `cmd name:"backup-nvm" help:"Save the NVM to a file."`
	RestoreNVM   RestoreNVMCmd   `cmd name:"restore-nvm" help:"Write the configuration half of an NVM backup, then power off."`
	Reset        ResetCmd        `cmd help:"Reset the controller and power off."`

	Hash  HashCmd  `cmd help:"Hash a ROM dump and check it against the known dumps."`
	Patch PatchCmd `cmd help:"Offline NVM patch window tools."`
}

/* Commands that never talk to a bridge */
var offlineCommands = map[string]bool{
	"list-dev": true,
	"hash":     true,
	"patch":    true,
}

func applyFlags(cfg *config.Config) {
	t := &cfg.Transport
	if CLI.Transport != "" {
		t.Kind = strings.ToLower(CLI.Transport)
	}
	if CLI.VID != 0 {
		t.VID = CLI.VID
	}
	if CLI.PID != 0 {
		t.PID = CLI.PID
	}
	if CLI.Serial != "" {
		t.Serial = CLI.Serial
	}
	if CLI.RawPath != "" {
		t.RawPath = CLI.RawPath
	}
	if CLI.Port != "" {
		t.Port = CLI.Port
	}
	if CLI.Baud != 0 {
		t.Baud = CLI.Baud
	}
	if CLI.LogLevel != "" {
		cfg.LogLevel = CLI.LogLevel
	}
}

func main() {
	k, err := kong.New(&CLI,
		kong.NamedMapper("int", intMapper{}),
		kong.NamedMapper("hex", intMapper{base: 16}))
	if err != nil {
		fmt.Println(err)
		return
	}

	kctx, err := k.Parse(os.Args[1:])
	if err != nil {
		fmt.Println(err)
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
		return
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &Context{
		ctx: ctx,
		cfg: cfg,
		log: logger.Sugar(),
	}
	c.halLog = halLogFunc(c.log, CLI.HALLevel)

	command := strings.Fields(kctx.Command())[0]
	if !offlineCommands[command] {
		if err := c.open(); err != nil {
			c.log.Errorw("Failed to open bridge", "transport", cfg.Transport.Kind, "error", err)
			return
		}
		defer c.close()
	}

	err = kctx.Run(c)
	kctx.FatalIfErrorf(err)
}

func (c *Context) open() error {
	dev, err := openTransport(c)
	if err != nil {
		return err
	}

	c.hal = mechahal.New(dev, mechahal.HALConfig{
		NVMBusyRetries: c.cfg.NVMBusyRetries,
		LogFunc:        c.halLog,
	})
	return nil
}

func (c *Context) close() {
	if c.dev != nil {
		c.dev.Close()
	}
}

// codec returns the NVM codec, which needs both secret keys.
func (c *Context) codec() (nvm.Codec, error) {
	keys, err := c.cfg.SecretKeys()
	if err != nil {
		return nvm.Codec{}, err
	}
	codec := nvm.NewCodec(keys)
	codec.LegacyBlockChecksum = c.cfg.LegacyBlockChecksum
	return codec, nil
}

func (c *Context) classifier() (*nvm.Classifier, error) {
	codec, err := c.codec()
	if err != nil {
		return nil, err
	}

	irq, cdp, err := c.cfg.PatchReferences()
	if err != nil {
		return nil, err
	}
	if irq == nil || cdp == nil {
		c.log.Warn("Not all patch references are configured, their state cannot be detected")
	}
	return codec.NewClassifier(irq, cdp), nil
}
