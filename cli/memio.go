package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BertoldVdb/mecha-tools/mechahal"
	"github.com/inancgumus/screen"
	"github.com/pkg/errors"
)

type MEMIOListRegions struct {
}

func (l *MEMIOListRegions) Run(c *Context) error {
	fmt.Printf("Region       |     Length | Align | Parent\n")

	for _, name := range c.hal.MemoryRegionList() {
		m := c.hal.MemoryRegionGet(name)
		parent, offset := mechahal.RecursiveGetParentAddress(m, 0)
		fmt.Printf("%-13s|   %8d |     %d |", m.GetName(), m.GetLength(), m.GetAlignment())
		if parent != m {
			fmt.Printf(" %s.%04X", parent.GetName(), offset)
		}
		fmt.Printf("\n")
	}
	return nil
}

type Region struct {
	Region string `arg name:"region" help:"Memory region to access."`
	Addr   int    `arg name:"addr" help:"Offset in the region." type:"int"`
}

type MEMIOReadCmd struct {
	Loop     int    `optional help:"0=Perform once, 1=Mark changes since start, 2=Mark changes since previous iteration."`
	Filename string `optional help:"File to write dump to."`

	Word bool `optional help:"Read a single little-endian 32-bit word."`

	Region Region `embed`
	Amount int    `arg name:"amount" help:"Number of bytes to read, omit for the rest of the region." optional default:"0" type:"int"`
}

func (l *MEMIOReadCmd) readSingle(region mechahal.MemoryRegion) (bool, error) {
	switch {
	case l.Word:
		v, err := mechahal.ReadUint32(region, l.Region.Addr)
		if err != nil {
			return true, err
		}
		fmt.Printf("0x%08x\n", v)
		return true, nil

	case l.Amount == 1 && l.Filename == "":
		v, err := mechahal.ReadByte(region, l.Region.Addr)
		if err != nil {
			return true, err
		}
		fmt.Printf("0x%02x\n", v)
		return true, nil
	}
	return false, nil
}

func (l *MEMIOReadCmd) Run(c *Context) error {
	if l.Loop < 0 || l.Loop > 2 {
		return errors.New("Loop flag out of range")
	}

	region := c.hal.MemoryRegionGet(mechahal.MemoryRegionNameType(l.Region.Region))
	if region == nil {
		return errors.Errorf("Invalid memory region %q", l.Region.Region)
	}

	if l.Loop == 0 {
		if done, err := l.readSingle(region); done {
			return err
		}
	}

	if l.Amount == 0 {
		l.Amount = region.GetLength() - l.Region.Addr
	}
	if l.Amount <= 0 {
		return errors.New("Nothing to read")
	}

	var oldBuf []byte
	var mark []bool
	for {
		startTime := time.Now()
		if l.Loop == 2 || mark == nil {
			mark = make([]bool, l.Amount)
		}

		buf := make([]byte, l.Amount)
		n, err := region.Access(false, l.Region.Addr, buf)
		if err != nil {
			return errors.Wrap(err, "Read error")
		}
		buf = buf[:n]

		if l.Filename != "" {
			return os.WriteFile(l.Filename, buf, 0644)
		}

		if l.Loop != 0 {
			screen.Clear()
			screen.MoveTopLeft()
			if oldBuf != nil {
				for i, m := range oldBuf {
					if i < len(buf) && m != buf[i] {
						mark[i] = true
					}
				}
			}
		}
		fmt.Print(hexdump(l.Region.Addr, buf, mark))

		oldBuf = buf

		if l.Loop == 0 {
			break
		}

		d := time.Since(startTime)
		td := 200 * time.Millisecond
		if d < td {
			select {
			case <-c.ctx.Done():
				return nil
			case <-time.After(td - d):
			}
		}
		if c.ctx.Err() != nil {
			return nil
		}
	}

	return nil
}
