package bridge

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sigurn/crc16"
	"github.com/tarm/serial"
)

const (
	serialRequestStart = 0x55
	serialReplyStart   = 0xAA

	serialMaxPayload = 0xFF
	/* Reads that return nothing this many times in a row end the exchange */
	serialMaxIdleReads = 3
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Serial frames commands as
//
//	55 opcode len replyLen request... crc16
//
// and expects
//
//	AA status n data... crc16
//
// with a big-endian XMODEM CRC over everything before it.
type Serial struct {
	port io.ReadWriter
}

func NewSerial(port io.ReadWriter) *Serial {
	return &Serial{port: port}
}

// OpenSerial opens a bridge on a serial port.
func OpenSerial(name string, baud int) (*Serial, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}

	/* Let anything still in flight arrive before dropping it */
	time.Sleep(100 * time.Millisecond)
	port.Flush()

	return NewSerial(port), nil
}

func encodeSerialRequest(opcode byte, request []byte, replyLen int) []byte {
	frame := []byte{serialRequestStart, opcode, byte(len(request)), byte(replyLen)}
	frame = append(frame, request...)
	return binary.BigEndian.AppendUint16(frame, crc16.Checksum(frame, crcTable))
}

func (b *Serial) recv(count int) ([]byte, error) {
	resp := make([]byte, 0, count)
	idle := 0

	for len(resp) < count {
		buf := make([]byte, count-len(resp))
		n, err := b.port.Read(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if n == 0 {
			idle++
			if idle >= serialMaxIdleReads {
				return nil, ErrorTimeout
			}
			continue
		}

		idle = 0
		resp = append(resp, buf[:n]...)
	}

	return resp, nil
}

func (b *Serial) SCmd(opcode byte, request []byte, replyLen int) ([]byte, error) {
	if len(request) > serialMaxPayload || replyLen > serialMaxPayload {
		return nil, errors.Wrapf(ErrorTooLong, "request %d, reply %d", len(request), replyLen)
	}

	if _, err := b.port.Write(encodeSerialRequest(opcode, request, replyLen)); err != nil {
		return nil, errors.Wrap(err, "write frame")
	}

	header, err := b.recv(3)
	if err != nil {
		return nil, errors.Wrap(err, "reply header")
	}
	if header[0] != serialReplyStart {
		return nil, errors.Wrapf(ErrorFraming, "start byte %02x", header[0])
	}

	rest, err := b.recv(int(header[2]) + 2)
	if err != nil {
		return nil, errors.Wrap(err, "reply body")
	}

	frame := append(header, rest...)
	body := frame[:len(frame)-2]
	if got, want := binary.BigEndian.Uint16(frame[len(body):]), crc16.Checksum(body, crcTable); got != want {
		return nil, errors.Wrapf(ErrorCRC, "got %04x, want %04x", got, want)
	}

	if header[1] != 0 {
		return nil, &RejectedError{Opcode: opcode, Status: header[1]}
	}

	data := body[3:]
	if len(data) < replyLen {
		return nil, errors.Wrapf(ErrorShortReply, "got %d, want %d", len(data), replyLen)
	}
	return data[:replyLen], nil
}

func (b *Serial) Close() error {
	if c, ok := b.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
