package spimem

import (
	"fmt"
)

// Geometry describes one chip variant.
//
// A Geometry is validated once when a Dev is created and copied into it; it
// is never changed afterwards.
type Geometry struct {
	// Name is informational, e.g. "Winbond W25Q128".
	Name string
	// AddressBytes is the number of address bytes sent with each command,
	// 1 to 4. Four selects the 4-byte address opcodes.
	AddressBytes int
	// Capacity is the total size in bytes.
	Capacity int64
	// PageSize is the largest unit written by a single PAGE PROGRAM.
	PageSize int
	// SectorSize is the unit erased by EraseSector.
	SectorSize int
	// BlockSize is the unit erased by EraseBlock.
	BlockSize int

	// SectorErase and BlockErase override the erase opcodes when non-zero.
	SectorErase byte
	BlockErase  byte
}

// Validate checks that the geometry is consistent.
//
// Capacity must be a multiple of the block size, which must be a multiple of
// the sector size, which must be a multiple of the page size. The capacity
// must be addressable with AddressBytes bytes.
func (g *Geometry) Validate() error {
	switch {
	case g.AddressBytes < 1 || g.AddressBytes > 4:
		return fmt.Errorf("%w: %d address bytes", ErrGeometry, g.AddressBytes)
	case g.PageSize <= 0:
		return fmt.Errorf("%w: page size %d", ErrGeometry, g.PageSize)
	case g.SectorSize <= 0 || g.SectorSize%g.PageSize != 0:
		return fmt.Errorf(
			"%w: sector size %d is not a multiple of page size %d",
			ErrGeometry, g.SectorSize, g.PageSize,
		)
	case g.BlockSize <= 0 || g.BlockSize%g.SectorSize != 0:
		return fmt.Errorf(
			"%w: block size %d is not a multiple of sector size %d",
			ErrGeometry, g.BlockSize, g.SectorSize,
		)
	case g.Capacity <= 0 || g.Capacity%int64(g.BlockSize) != 0:
		return fmt.Errorf(
			"%w: capacity %d is not a multiple of block size %d",
			ErrGeometry, g.Capacity, g.BlockSize,
		)
	case g.Capacity > int64(1)<<(8*g.AddressBytes):
		return fmt.Errorf(
			"%w: capacity %d needs more than %d address bytes",
			ErrGeometry, g.Capacity, g.AddressBytes,
		)
	}
	return nil
}

func (g Geometry) String() string {
	name := g.Name
	if name == "" {
		name = "custom"
	}
	return fmt.Sprintf(
		"%s: %d bytes, page %d, sector %d, block %d, %d-byte address",
		name, g.Capacity, g.PageSize, g.SectorSize, g.BlockSize, g.AddressBytes,
	)
}

// checkRange validates that n bytes at addr are within the chip. The address
// itself must be below the capacity even when n is zero.
func (g *Geometry) checkRange(addr uint32, n int) error {
	if int64(addr) >= g.Capacity || int64(addr)+int64(n) > g.Capacity {
		return fmt.Errorf(
			"%w: 0x%x+%d exceeds capacity %d", ErrOutOfBounds, addr, n, g.Capacity,
		)
	}
	return nil
}

// checkAligned validates an erase address against the erase size.
func (g *Geometry) checkAligned(addr uint32, size int) error {
	if err := g.checkRange(addr, 0); err != nil {
		return err
	}
	if int64(addr)%int64(size) != 0 {
		return fmt.Errorf("%w: 0x%x is not a multiple of %d", ErrAlignment, addr, size)
	}
	return nil
}

// chunk is a part of a transfer that stays within one page.
type chunk struct {
	addr   uint32
	offset int
	size   int
}

// pageChunks splits n bytes at addr into chunks that never cross a page
// boundary. Only the first and last chunk can be shorter than a page.
func (g *Geometry) pageChunks(addr uint32, n int) []chunk {
	var chunks []chunk
	for offset := 0; offset < n; {
		space := g.PageSize - int(int64(addr)%int64(g.PageSize))
		size := n - offset
		if size > space {
			size = space
		}
		chunks = append(chunks, chunk{addr, offset, size})
		addr += uint32(size)
		offset += size
	}
	return chunks
}
