// Package bridge carries S-commands from the host to the console through a
// small microcontroller, either as HID feature reports or over a serial port.
package bridge

import (
	"github.com/BertoldVdb/mecha-tools/gohid"
	"github.com/pkg/errors"
)

const (
	hidReportSize    = 32
	hidRequestHeader = 4
	hidReplyHeader   = 3
)

// HID sends each command as one feature report and reads the reply from the
// next one.
type HID struct {
	dev gohid.HIDDevice
}

func NewHID(dev gohid.HIDDevice) *HID {
	return &HID{dev: dev}
}

func (b *HID) SCmd(opcode byte, request []byte, replyLen int) ([]byte, error) {
	if len(request) > hidReportSize-hidRequestHeader || replyLen > hidReportSize-hidReplyHeader {
		return nil, errors.Wrapf(ErrorTooLong, "request %d, reply %d", len(request), replyLen)
	}

	var out [hidReportSize]byte
	out[1] = opcode
	out[2] = byte(len(request))
	out[3] = byte(replyLen)
	copy(out[hidRequestHeader:], request)

	if _, err := b.dev.SendFeatureReport(out[:]); err != nil {
		return nil, errors.Wrap(err, "send report")
	}

	var in [hidReportSize]byte
	n, err := b.dev.GetFeatureReport(in[:])
	if err != nil {
		return nil, errors.Wrap(err, "get report")
	}
	if n < hidReplyHeader {
		return nil, errors.Wrapf(ErrorFraming, "%d byte report", n)
	}

	if in[1] != 0 {
		return nil, &RejectedError{Opcode: opcode, Status: in[1]}
	}

	count := int(in[2])
	if count < replyLen || hidReplyHeader+replyLen > n {
		return nil, errors.Wrapf(ErrorShortReply, "got %d, want %d", count, replyLen)
	}

	reply := make([]byte, replyLen)
	copy(reply, in[hidReplyHeader:])
	return reply, nil
}

func (b *HID) Close() error {
	return b.dev.Close()
}
