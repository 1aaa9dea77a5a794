// Package cansocket is a concrete, demonstration-only SocketCAN producer:
// it satisfies the engine's ingest boundary by reading raw frames off a
// Linux CAN interface, but the inspection engine never imports it — any
// bus-side producer that can build a decode.RawFrame works equally well.
// Grounded on the Navifra CAN-logging backend's raw-socket reader,
// generalized from classic 16-byte frames to classic-or-FD and from a
// fixed little-endian ID decode to exposing the raw frame id (including
// the SocketCAN extended-id flag) untouched for the decode dictionary to
// resolve.
package cansocket

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ridgeline-iot/canopy-edge/internal/decode"
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

// classicFrameBytes is the on-wire size of struct can_frame; fdFrameBytes
// is struct canfd_frame — both start with the same 8-byte header
// (id uint32, len uint8, pad/res/flags, then payload).
const (
	classicFrameBytes = 16
	fdFrameBytes      = 72
)

// Reader reads raw CAN (or CAN FD) frames from one SocketCAN interface and
// emits decode.RawFrame values on Frames(). Per-frame errors (a failed
// read, a malformed frame, a full Frames() channel) are reported on
// Errors() rather than stopping the read loop.
type Reader struct {
	socket  int
	ifname  string
	channel domain.ChannelID

	frames chan decode.RawFrame
	errs   chan error
	done   chan struct{}
}

// Open binds a raw CAN socket to ifname and tags every frame it produces
// with channel (the engine's logical bus identifier, independent of the
// OS interface name).
func Open(ifname string, channel domain.ChannelID) (*Reader, error) {
	socket, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("cansocket: create socket: %w", err)
	}

	ifreq, err := unix.NewIfreq(ifname)
	if err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("cansocket: ifreq: %w", err)
	}
	if err := unix.IoctlIfreq(socket, unix.SIOCGIFINDEX, ifreq); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("cansocket: lookup interface index: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: int(ifreq.Uint32())}
	if err := unix.Bind(socket, addr); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("cansocket: bind: %w", err)
	}

	return &Reader{
		socket:  socket,
		ifname:  ifname,
		channel: channel,
		frames:  make(chan decode.RawFrame, 1000),
		errs:    make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the read loop on its own goroutine.
func (r *Reader) Start() {
	go r.readLoop()
}

func (r *Reader) readLoop() {
	buf := make([]byte, fdFrameBytes)
	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, err := unix.Read(r.socket, buf)
		if err != nil {
			r.reportError(fmt.Errorf("cansocket: read: %w", err))
			continue
		}
		if n != classicFrameBytes && n != fdFrameBytes {
			r.reportError(fmt.Errorf("cansocket: unexpected frame size %d", n))
			continue
		}

		id := binary.LittleEndian.Uint32(buf[0:4])
		length := buf[4]
		payloadOff := 8
		if int(length) > n-payloadOff {
			r.reportError(fmt.Errorf("cansocket: declared length %d exceeds frame", length))
			continue
		}

		data := make([]byte, length)
		copy(data, buf[payloadOff:payloadOff+int(length)])

		frame := decode.RawFrame{
			Channel:     r.channel,
			FrameID:     id,
			ReceiveTime: domain.Timestamp(time.Now().UnixMilli()),
			Data:        data,
		}

		select {
		case r.frames <- frame:
		default:
			r.reportError(fmt.Errorf("cansocket: frame channel full, dropping frame id 0x%x", id))
		}
	}
}

func (r *Reader) reportError(err error) {
	select {
	case r.errs <- err:
	default:
	}
}

// Frames returns the channel raw frames are delivered on.
func (r *Reader) Frames() <-chan decode.RawFrame { return r.frames }

// Errors returns the channel non-fatal read errors are reported on.
func (r *Reader) Errors() <-chan error { return r.errs }

// Close stops the read loop and releases the socket.
func (r *Reader) Close() error {
	close(r.done)
	return unix.Close(r.socket)
}
