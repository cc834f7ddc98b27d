// Package sfdp parses the Serial Flash Discoverable Parameters of a SPI NOR
// flash chip.
//
// Useful references:
//   - JEDEC JESD216, Serial Flash Discoverable Parameters
//   - Linux: drivers/mtd/spi-nor/sfdp.c
package sfdp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Signature is the value of the first header dword, "SFDP" in little endian.
const Signature = 0x50444653

// Parameter table IDs and basic table dwords.
const (
	BasicTableID = 0xff00

	BasicTableFeaturesDword = 0
	BasicTableDensityDword  = 1
)

// Address modes reported in the basic table.
const (
	AddressMode3Byte    = 0
	AddressMode3Or4Byte = 1
	AddressMode4Byte    = 2
)

const (
	addressModeReserved  = 3
	addressModeShift     = 17
	erase4KiBOpcodeShift = 8
	densityIsPowerOfTwo  = 1 << 31
)

var (
	ErrNoSFDP     = errors.New("sfdp: chip does not support SFDP")
	ErrNoTable    = errors.New("sfdp: parameter table not found")
	ErrNoErase4K  = errors.New("sfdp: no 4 KiB erase opcode")
	ErrBadDensity = errors.New("sfdp: unsupported density")
)

// SFDP is the parsed header and parameter tables.
type SFDP struct {
	Header
	Parameters []Parameter
}

// Header is the 8 byte SFDP header at address 0.
type Header struct {
	// Signature is 0x50444653 ("SFDP") if the chip supports SFDP.
	Signature                uint32
	MinorRev                 uint8
	MajorRev                 uint8
	NumberOfParameterHeaders uint8
	_                        uint8
}

// Parameter is one parameter header and the table it points to.
type Parameter struct {
	ParameterHeader
	// ID is IDMSB:IDLSB.
	ID    uint16
	Table []uint32
}

// ParameterHeader is the 8 byte header of a parameter table.
type ParameterHeader struct {
	IDLSB    uint8
	MinorRev uint8
	MajorRev uint8
	// Length is in dwords.
	Length uint8
	// Pointer holds the 24 bit table address and IDMSB in the top byte.
	Pointer uint32
}

// Address returns the byte address of the parameter table.
func (p *ParameterHeader) Address() uint32 {
	return p.Pointer & 0x00ffffff
}

// ReaderAt reads SFDP data at an SFDP address.
type ReaderAt interface {
	SFDPReadAt(offset uint32, out []byte) error
}

// Buffer holds an SFDP to be parsed. Primarily used for testing.
type Buffer []byte

// SFDPReadAt implements sfdp.ReaderAt for Buffer.
func (b Buffer) SFDPReadAt(offset uint32, out []byte) error {
	if int(offset)+len(out) > len(b) {
		return fmt.Errorf("sfdp: read of %d bytes at 0x%x beyond buffer", len(out), offset)
	}
	copy(out, b[offset:])
	return nil
}

// Parse reads the SFDP header, all parameter headers and their tables.
func Parse(r ReaderAt) (*SFDP, error) {
	headerBuf := make([]byte, binary.Size(Header{}))
	if err := r.SFDPReadAt(0, headerBuf); err != nil {
		return nil, err
	}
	var header Header
	if err := binary.Read(bytes.NewReader(headerBuf), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Signature != Signature {
		return nil, ErrNoSFDP
	}

	// The header count is zero based.
	n := int(header.NumberOfParameterHeaders) + 1
	headerSize := binary.Size(ParameterHeader{})
	parametersBuf := make([]byte, headerSize*n)
	if err := r.SFDPReadAt(uint32(len(headerBuf)), parametersBuf); err != nil {
		return nil, err
	}

	s := &SFDP{
		Header:     header,
		Parameters: make([]Parameter, n),
	}
	pr := bytes.NewReader(parametersBuf)
	for i := range s.Parameters {
		p := &s.Parameters[i]
		if err := binary.Read(pr, binary.LittleEndian, &p.ParameterHeader); err != nil {
			return nil, err
		}
		p.ID = uint16(p.Pointer>>16)&0xff00 | uint16(p.IDLSB)
		p.Table = make([]uint32, p.Length)
		tableBuf := make([]byte, 4*int(p.Length))
		if err := r.SFDPReadAt(p.Address(), tableBuf); err != nil {
			return nil, fmt.Errorf("sfdp: table %04x: %w", p.ID, err)
		}
		if err := binary.Read(bytes.NewReader(tableBuf), binary.LittleEndian, p.Table); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TableDword reads a dword from the first SFDP table with the given id.
func (s *SFDP) TableDword(id uint16, dword int) (uint32, error) {
	for _, p := range s.Parameters {
		if p.ID != id {
			continue
		}
		if dword < 0 || dword >= len(p.Table) {
			return 0, fmt.Errorf("%w: dword %d of table %04x", ErrNoTable, dword, id)
		}
		return p.Table[dword], nil
	}
	return 0, fmt.Errorf("%w: %04x", ErrNoTable, id)
}

// Size returns the chip density in bytes.
func (s *SFDP) Size() (int64, error) {
	density, err := s.TableDword(BasicTableID, BasicTableDensityDword)
	if err != nil {
		return 0, err
	}
	var bits int64
	if density&densityIsPowerOfTwo != 0 {
		n := density &^ densityIsPowerOfTwo
		if n < 3 || n > 62 {
			return 0, fmt.Errorf("%w: 2^%d bits", ErrBadDensity, n)
		}
		bits = int64(1) << n
	} else {
		bits = int64(density) + 1
	}
	if bits%8 != 0 {
		return 0, fmt.Errorf("%w: %d bits", ErrBadDensity, bits)
	}
	return bits / 8, nil
}

// Erase4KiBOpcode returns the opcode erasing 4 KiB.
func (s *SFDP) Erase4KiBOpcode() (uint8, error) {
	dword, err := s.TableDword(BasicTableID, BasicTableFeaturesDword)
	if err != nil {
		return 0, err
	}
	opcode := uint8(dword >> erase4KiBOpcodeShift)
	if dword&0x3 != 0x1 || opcode == 0xff {
		return 0, ErrNoErase4K
	}
	return opcode, nil
}

// AddressMode returns one of AddressMode3Byte, AddressMode3Or4Byte and
// AddressMode4Byte.
func (s *SFDP) AddressMode() (int, error) {
	dword, err := s.TableDword(BasicTableID, BasicTableFeaturesDword)
	if err != nil {
		return 0, err
	}
	mode := int(dword>>addressModeShift) & 0x3
	if mode == addressModeReserved {
		return 0, fmt.Errorf("sfdp: reserved address mode")
	}
	return mode, nil
}
