package k230

import (
	"fmt"
	"io"
	"strings"
)

// Loader drives the mask-ROM command protocol over a claimed transport.
type Loader struct {
	t Transport
}

func NewLoader(t Transport) Loader {
	return Loader{t: t}
}

func (l Loader) command(req Request, param uint32) error {
	value, index := SplitParam(param)
	if err := l.t.ControlOut(uint8(req), value, index); err != nil {
		return fmt.Errorf("%s: %w", req, err)
	}
	return nil
}

// CpuInfo queries the chip identification string.
func (l Loader) CpuInfo() (string, error) {
	buf := make([]byte, cpuInfoLen)
	value, index := SplitParam(0)
	n, err := l.t.ControlIn(uint8(ReqGetCpuInfo), value, index, buf)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ReqGetCpuInfo, err)
	}
	return decodeCpuInfo(buf[:n])
}

// decodeCpuInfo interprets a GetCpuInfo reply as text. The ROM pads the
// reply buffer with NUL bytes; anything else non-printable means we are not
// talking to the expected ROM.
func decodeCpuInfo(raw []byte) (string, error) {
	s := strings.TrimRight(string(raw), "\x00")
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return "", fmt.Errorf("invalid cpu info reply % x", raw)
		}
	}
	return s, nil
}

// SetDataAddress primes the destination address for the bulk data that
// follows. It must be issued before the first chunk of an image.
func (l Loader) SetDataAddress(addr uint32) error {
	return l.command(ReqSetDataAddress, addr)
}

// SetDataLength announces the total image length. The ROM accepts data
// without it, but the request is part of the command set.
func (l Loader) SetDataLength(n uint32) error {
	return l.command(ReqSetDataLength, n)
}

// FlushCaches makes memory pushed over USB visible to the CPU core.
func (l Loader) FlushCaches() error {
	return l.command(ReqFlushCaches, 0)
}

// ProgStart makes the device resume execution at addr.
func (l Loader) ProgStart(addr uint32) error {
	return l.command(ReqProgStart, addr)
}

// LoadImage primes addr and streams r to the device in ChunkSize pieces.
// Chunks go out strictly one at a time: the ROM has no flow control beyond
// per-transfer status, so a chunk is only sent once the previous one's
// outcome is known. The stream ends at the first zero-length read.
func (l Loader) LoadImage(addr uint32, r io.Reader) error {
	if err := l.SetDataAddress(addr); err != nil {
		return err
	}
	buf := make([]byte, ChunkSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if _, werr := l.t.BulkOut(buf[:n]); werr != nil {
				return fmt.Errorf("bulk write: %w", werr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading image: %v", err)
		}
	}
}

// Run loads the image from r at addr and transfers control to it.
func (l Loader) Run(addr uint32, r io.Reader) error {
	if err := l.LoadImage(addr, r); err != nil {
		return err
	}
	return l.ProgStart(addr)
}

// BootROM hands control back to the mask ROM entry point.
func (l Loader) BootROM() error {
	return l.ProgStart(MaskROMBase)
}
