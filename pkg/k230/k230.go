// Package k230 implements the vendor command protocol spoken by the
// Kendryte K230D mask ROM in USB recovery mode: a small set of control
// requests to query the chip, prime a destination address, stream an image
// into on-chip memory over the bulk-out endpoint, and transfer control.
package k230

import "fmt"

// USB identity of a K230D in recovery mode.
const (
	VendorID  = 0x29F1
	ProductID = 0x0230
)

// Request is a vendor request opcode understood by the mask ROM.
type Request uint8

const (
	ReqGetCpuInfo     Request = 0x00
	ReqSetDataAddress Request = 0x01
	ReqSetDataLength  Request = 0x02
	ReqFlushCaches    Request = 0x03
	ReqProgStart      Request = 0x04
)

var reqNames = map[Request]string{
	ReqGetCpuInfo:     "GetCpuInfo",
	ReqSetDataAddress: "SetDataAddress",
	ReqSetDataLength:  "SetDataLength",
	ReqFlushCaches:    "FlushCaches",
	ReqProgStart:      "ProgStart",
}

func (r Request) String() string {
	if name, ok := reqNames[r]; ok {
		return name
	}
	return fmt.Sprintf("request %#02x", uint8(r))
}

// Memory targets on the K230D. Code pushed over USB runs from SRAM or DDR;
// MaskROMBase is the ROM's own entry point, used to hand control back.
const (
	SRAMRunBase uint32 = 0x80360000
	DRAMRunBase uint32 = 0x00000000
	MaskROMBase uint32 = 0x91200000
)

// Spaces maps the user-facing memory space names to their run addresses.
var Spaces = map[string]uint32{
	"sram": SRAMRunBase,
	"dram": DRAMRunBase,
}

// ChunkSize is the bulk-out transfer size the ROM expects. The last chunk of
// an image may be shorter.
const ChunkSize = 512

// cpuInfoLen is the size of the GetCpuInfo reply buffer.
const cpuInfoLen = 32

// SplitParam packs a 32-bit command parameter into the value/index fields of
// a control transfer: value carries the high half, index the low half.
func SplitParam(param uint32) (value, index uint16) {
	return uint16(param >> 16), uint16(param)
}

// JoinParam reassembles a 32-bit parameter from the value/index halves.
func JoinParam(value, index uint16) uint32 {
	return uint32(value)<<16 | uint32(index)
}

// Transport is the USB surface the protocol needs from a claimed device:
// vendor-scoped control transfers on the default endpoint and bulk writes to
// the device's out endpoint.
type Transport interface {
	// ControlIn issues a vendor/device control-in request and fills buf,
	// returning the number of bytes the device produced.
	ControlIn(request uint8, value, index uint16, buf []byte) (int, error)
	// ControlOut issues a vendor/device control-out request with no payload.
	ControlOut(request uint8, value, index uint16) error
	// BulkOut writes p to the device's bulk-out endpoint.
	BulkOut(p []byte) (int, error)
}
