package main

import (
	"encoding/hex"
	"fmt"
)

type RawCmd struct {
	Opcode   int    `arg name:"opcode" type:"hex" help:"Command opcode."`
	Data     string `arg name:"data" optional help:"Request as hex string."`
	ReplyLen int    `optional name:"reply-len" default:"16" help:"Number of reply bytes to read."`
}

func (w RawCmd) Run(c *Context) error {
	buf, err := hex.DecodeString(w.Data)
	if err != nil {
		return err
	}

	out, err := c.hal.SCmd(byte(w.Opcode), buf, w.ReplyLen)
	if err != nil {
		return err
	}

	fmt.Printf("Raw command results: %02x %s -> %s\n", w.Opcode, hex.EncodeToString(buf), hex.EncodeToString(out))
	return nil
}
