package spimem

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// JEDECID is the 3 byte identification returned by READ JEDEC ID.
type JEDECID [3]byte

// Manufacturer returns the JEDEC manufacturer code.
func (id JEDECID) Manufacturer() byte { return id[0] }

// MemoryType returns the manufacturer specific memory type.
func (id JEDECID) MemoryType() byte { return id[1] }

// CapacityCode returns the manufacturer specific capacity code. Most vendors
// use log2 of the capacity in bytes.
func (id JEDECID) CapacityCode() byte { return id[2] }

func (id JEDECID) String() string {
	return fmt.Sprintf("%02X %02X %02X", id[0], id[1], id[2])
}

// jedecContinuation is the JEP106 continuation code preceding manufacturer
// codes outside of bank 1.
const jedecContinuation = 0x7f

// identificationSize is how many bytes ReadIdentification clocks in; enough
// for parts that report their manufacturer in a high bank.
const identificationSize = 11

// Identification is a JEDEC identification with continuation codes removed.
type Identification struct {
	// Manufacturer is the manufacturer code within its bank.
	Manufacturer byte
	// Device is the manufacturer specific device ID.
	Device uint16
	// Continuations is the number of 0x7F codes before the manufacturer.
	//
	// For example the ARM Ltd identifier is `7F 7F 7F 7F 3B`, so the
	// continuation count is 4.
	Continuations int
}

// JEDECID returns the identification in READ JEDEC ID form.
func (i Identification) JEDECID() JEDECID {
	return JEDECID{i.Manufacturer, byte(i.Device >> 8), byte(i.Device)}
}

func (i Identification) String() string {
	return fmt.Sprintf(
		"%s (bank %d) device %04X", ManufacturerName(i.Manufacturer),
		i.Continuations+1, i.Device,
	)
}

// ParseIdentification parses a JEDEC identification.
//
// Example response for the Cypress FM25V02A:
//
//	7F 7F 7F 7F 7F 7F C2 22 08
//
// 0x7F is a continuation code and 0xC2 the company identifier in bank 7.
// Trailing bytes after the device ID are ignored.
func ParseIdentification(b []byte) (Identification, error) {
	var id Identification
	s := cryptobyte.String(b)
	for len(s) > 0 && s[0] == jedecContinuation {
		s.Skip(1)
		id.Continuations++
	}
	if !s.ReadUint8(&id.Manufacturer) || !s.ReadUint16(&id.Device) {
		return Identification{}, errors.New("spimem: identification too short")
	}
	return id, nil
}
