package k230

import "testing"

func TestSplitParamRoundTrip(t *testing.T) {
	params := []uint32{
		0,
		1,
		0xFFFF,
		0x10000,
		SRAMRunBase,
		MaskROMBase,
		0xDEADBEEF,
		0xFFFFFFFF,
	}
	for _, p := range params {
		value, index := SplitParam(p)
		if value != uint16(p>>16) {
			t.Errorf("SplitParam(%#x): value = %#x, want %#x", p, value, uint16(p>>16))
		}
		if index != uint16(p&0xFFFF) {
			t.Errorf("SplitParam(%#x): index = %#x, want %#x", p, index, uint16(p&0xFFFF))
		}
		if got := JoinParam(value, index); got != p {
			t.Errorf("JoinParam(SplitParam(%#x)) = %#x, want %#x", p, got, p)
		}
	}
}

func TestRequestString(t *testing.T) {
	if got := ReqSetDataAddress.String(); got != "SetDataAddress" {
		t.Errorf("ReqSetDataAddress.String() = %q", got)
	}
	if got := Request(0x17).String(); got != "request 0x17" {
		t.Errorf("Request(0x17).String() = %q", got)
	}
}

func TestSpacesTable(t *testing.T) {
	if Spaces["sram"] != SRAMRunBase {
		t.Errorf("Spaces[sram] = %#x, want %#x", Spaces["sram"], SRAMRunBase)
	}
	if Spaces["dram"] != DRAMRunBase {
		t.Errorf("Spaces[dram] = %#x, want %#x", Spaces["dram"], DRAMRunBase)
	}
}
