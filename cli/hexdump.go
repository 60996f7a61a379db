package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const hexdumpWidth = 16

// hexdump formats data in rows of 16 bytes grouped per 32-bit word. Bytes
// with mark set are shown in red.
func hexdump(offset int, data []byte, mark []bool) string {
	var result strings.Builder
	red := color.New(color.FgRed)

	for row := 0; row < len(data); row += hexdumpWidth {
		var workHex, workASCII strings.Builder

		for i := 0; i < hexdumpWidth; i++ {
			index := row + i
			if index >= len(data) {
				workHex.WriteString("   ")
				workASCII.WriteByte(' ')
			} else {
				m := data[index]
				delta := mark != nil && index < len(mark) && mark[index]

				ch := m
				if ch < 32 || ch > 126 {
					ch = '.'
				}

				if delta {
					workHex.WriteString(red.Sprintf("%02x ", m))
					workASCII.WriteString(red.Sprintf("%c", ch))
				} else {
					fmt.Fprintf(&workHex, "%02x ", m)
					workASCII.WriteByte(ch)
				}
			}

			if i%4 == 3 {
				workHex.WriteByte(' ')
			}
		}

		fmt.Fprintf(&result, "%08x  %s|%s|\n", offset+row, workHex.String(), workASCII.String())
	}

	return result.String()
}
