package spimem

import (
	"fmt"
)

// command is one 25-series instruction frame.
type command struct {
	opcode  byte
	address uint32
	hasAddr bool
	// addrBytes overrides the encoder address width when non-zero.
	addrBytes int
	// dummy is the number of zero bytes clocked out after the address.
	dummy int
	data  []byte
	// program marks frames whose payload must stay within one page.
	program bool
}

// commandEncoder encodes commands for one geometry.
type commandEncoder struct {
	addrBytes int
	pageSize  int
}

func newCommandEncoder(geo *Geometry) commandEncoder {
	return commandEncoder{
		addrBytes: geo.AddressBytes,
		pageSize:  geo.PageSize,
	}
}

// Encode returns the bytes clocked out for c: opcode, big-endian address,
// dummy bytes and payload.
func (e *commandEncoder) Encode(c *command) ([]byte, error) {
	n := e.addrBytes
	if c.addrBytes != 0 {
		n = c.addrBytes
	}
	if !c.hasAddr {
		n = 0
	}

	if c.hasAddr && n < 4 && c.address>>(8*n) != 0 {
		return nil, fmt.Errorf("%w: 0x%x in %d bytes", ErrAddressWidth, c.address, n)
	}
	if c.program && e.pageSize > 0 {
		offset := int(c.address) % e.pageSize
		if offset+len(c.data) > e.pageSize {
			return nil, fmt.Errorf(
				"%w: %d bytes at page offset %d", ErrPageBoundary, len(c.data), offset,
			)
		}
	}

	b := make([]byte, 0, 1+n+c.dummy+len(c.data))
	b = append(b, c.opcode)
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(c.address>>(8*i)))
	}
	for i := 0; i < c.dummy; i++ {
		b = append(b, 0)
	}
	return append(b, c.data...), nil
}
