package sfdp

import (
	"encoding/binary"
	"errors"
	"testing"
)

// basicTable returns an SFDP image with a single 9 dword basic parameter
// table at 0x30.
func basicTable(features, density uint32) Buffer {
	b := make(Buffer, 0x30+9*4)
	copy(b, "SFDP")
	b[4] = 0x06 // minor
	b[5] = 0x01 // major
	b[6] = 0x00 // one parameter header
	b[7] = 0xff
	// Parameter header.
	b[8] = 0x00
	b[9] = 0x06
	b[10] = 0x01
	b[11] = 9
	binary.LittleEndian.PutUint32(b[12:], 0xff000030)
	binary.LittleEndian.PutUint32(b[0x30:], features)
	binary.LittleEndian.PutUint32(b[0x34:], density)
	return b
}

func TestParse(t *testing.T) {
	// W25Q128: 4 KiB erase with 0x20, 3-byte addressing, 128 Mbit.
	s, err := Parse(basicTable(0xfff920e5, 0x07ffffff))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Parameters) != 1 {
		t.Fatalf("got %d parameters, want 1", len(s.Parameters))
	}
	if p := s.Parameters[0]; p.ID != BasicTableID || p.Address() != 0x30 || len(p.Table) != 9 {
		t.Errorf("unexpected parameter %+v", p)
	}

	size, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 16<<20 {
		t.Errorf("got size %d, want %d", size, 16<<20)
	}
	op, err := s.Erase4KiBOpcode()
	if err != nil {
		t.Fatal(err)
	}
	if op != 0x20 {
		t.Errorf("got erase opcode 0x%02x, want 0x20", op)
	}
	mode, err := s.AddressMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode != AddressMode3Byte {
		t.Errorf("got address mode %d, want %d", mode, AddressMode3Byte)
	}
}

func TestSize(t *testing.T) {
	testCases := []struct {
		name    string
		density uint32
		want    int64
		err     bool
	}{
		{"512KiB", 0x003fffff, 512 << 10, false},
		{"32MiB", 0x0fffffff, 32 << 20, false},
		{"power of two", 0x80000021, 1 << 30, false},
		{"odd bits", 0x00000002, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Parse(basicTable(0xfff920e5, tc.density))
			if err != nil {
				t.Fatal(err)
			}
			size, err := s.Size()
			if tc.err {
				if !errors.Is(err, ErrBadDensity) {
					t.Errorf("got %v, want %v", err, ErrBadDensity)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if size != tc.want {
				t.Errorf("got %d, want %d", size, tc.want)
			}
		})
	}
}

func TestAddressMode(t *testing.T) {
	// 3- or 4-byte addressing, MX25L25645G style.
	s, err := Parse(basicTable(0xfffb20e5, 0x0fffffff))
	if err != nil {
		t.Fatal(err)
	}
	mode, err := s.AddressMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode != AddressMode3Or4Byte {
		t.Errorf("got %d, want %d", mode, AddressMode3Or4Byte)
	}
}

func TestParseErrors(t *testing.T) {
	erased := make(Buffer, 64)
	for i := range erased {
		erased[i] = 0xff
	}
	if _, err := Parse(erased); !errors.Is(err, ErrNoSFDP) {
		t.Errorf("got %v, want %v", err, ErrNoSFDP)
	}

	truncated := basicTable(0xfff920e5, 0x07ffffff)[:0x38]
	if _, err := Parse(truncated); err == nil {
		t.Error("expected error for truncated table")
	}

	s, err := Parse(basicTable(0xfff900e4, 0x07ffffff))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Erase4KiBOpcode(); !errors.Is(err, ErrNoErase4K) {
		t.Errorf("got %v, want %v", err, ErrNoErase4K)
	}
	if _, err := s.TableDword(0x0081, 0); !errors.Is(err, ErrNoTable) {
		t.Errorf("got %v, want %v", err, ErrNoTable)
	}
}
