package device

import (
	"errors"
	"fmt"

	"github.com/kendryte-hacks/k230boot/pkg/k230"
)

// Emulator mimics a K230D in recovery mode without hardware: it answers the
// vendor command set in memory and records what the host pushed. Useful for
// trying out command sequences when no board is on the bus.
type Emulator struct {
	cpuInfo [32]byte

	base    uint32
	baseSet bool
	image   []byte

	entry   uint32
	started bool
}

// NewEmulator returns an emulated device that reports cpuInfo, NUL-padded to
// the ROM's reply buffer size, from GetCpuInfo.
func NewEmulator(cpuInfo string) *Emulator {
	e := &Emulator{}
	copy(e.cpuInfo[:], cpuInfo)
	return e
}

func (e *Emulator) Name() string {
	return "emulated K230D mask ROM"
}

func (e *Emulator) Close() error {
	return nil
}

func (e *Emulator) ControlIn(request uint8, value, index uint16, buf []byte) (int, error) {
	if k230.Request(request) != k230.ReqGetCpuInfo {
		return 0, fmt.Errorf("unsupported control-in %s", k230.Request(request))
	}
	return copy(buf, e.cpuInfo[:]), nil
}

func (e *Emulator) ControlOut(request uint8, value, index uint16) error {
	param := k230.JoinParam(value, index)
	switch k230.Request(request) {
	case k230.ReqSetDataAddress:
		// Re-priming the same address is a no-op; a new address starts a new
		// image.
		if !e.baseSet || e.base != param {
			e.base = param
			e.image = nil
		}
		e.baseSet = true
	case k230.ReqSetDataLength:
		// Advisory; the ROM accepts data until the host stops sending.
	case k230.ReqFlushCaches:
	case k230.ReqProgStart:
		e.entry = param
		e.started = true
	default:
		return fmt.Errorf("unsupported control-out %s", k230.Request(request))
	}
	return nil
}

func (e *Emulator) BulkOut(p []byte) (int, error) {
	if !e.baseSet {
		return 0, errors.New("data address not set")
	}
	e.image = append(e.image, p...)
	return len(p), nil
}

// Image returns the destination address and bytes pushed since the image was
// last (re)primed.
func (e *Emulator) Image() (addr uint32, data []byte) {
	return e.base, e.image
}

// Entry returns the address handed to ProgStart, if execution was started.
func (e *Emulator) Entry() (uint32, bool) {
	return e.entry, e.started
}
