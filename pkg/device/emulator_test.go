package device

import (
	"bytes"
	"testing"

	"github.com/kendryte-hacks/k230boot/pkg/k230"
)

func TestEmulatorLoadAndRun(t *testing.T) {
	em := NewEmulator("K230D ROM V1.1")
	l := k230.NewLoader(em)

	info, err := l.CpuInfo()
	if err != nil {
		t.Fatalf("CpuInfo: %v", err)
	}
	if info != "K230D ROM V1.1" {
		t.Errorf("CpuInfo = %q, want %q", info, "K230D ROM V1.1")
	}

	img := bytes.Repeat([]byte{0xA5, 0x5A}, 350) // 700 bytes, two chunks
	if err := l.Run(k230.SRAMRunBase, bytes.NewReader(img)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	addr, data := em.Image()
	if addr != k230.SRAMRunBase {
		t.Errorf("image address = %#x, want %#x", addr, k230.SRAMRunBase)
	}
	if !bytes.Equal(data, img) {
		t.Errorf("image data mismatch: got %d bytes, want %d", len(data), len(img))
	}
	entry, started := em.Entry()
	if !started {
		t.Fatal("device was not started")
	}
	if entry != k230.SRAMRunBase {
		t.Errorf("entry = %#x, want %#x", entry, k230.SRAMRunBase)
	}
}

func TestEmulatorRejectsDataBeforeAddress(t *testing.T) {
	em := NewEmulator("K230D ROM")
	if _, err := em.BulkOut([]byte{1, 2, 3}); err == nil {
		t.Fatal("BulkOut before SetDataAddress: want error")
	}
}

func TestEmulatorBootROM(t *testing.T) {
	em := NewEmulator("K230D ROM")
	l := k230.NewLoader(em)
	if err := l.BootROM(); err != nil {
		t.Fatalf("BootROM: %v", err)
	}
	entry, started := em.Entry()
	if !started || entry != k230.MaskROMBase {
		t.Errorf("entry = %#x started=%v, want %#x started", entry, started, k230.MaskROMBase)
	}
}
