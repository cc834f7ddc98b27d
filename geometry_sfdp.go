package spimem

import (
	"fmt"

	"github.com/northvolt/go-spimem/sfdp"
)

// GeometryFromSFDP derives a geometry from the SFDP basic parameter table.
//
// SFDP does not describe the page size; 256 bytes is assumed, as Linux does.
// Blocks are 64 KiB, or the whole chip when it is smaller.
func GeometryFromSFDP(s *sfdp.SFDP) (Geometry, error) {
	capacity, err := s.Size()
	if err != nil {
		return Geometry{}, err
	}
	op, err := s.Erase4KiBOpcode()
	if err != nil {
		return Geometry{}, err
	}
	mode, err := s.AddressMode()
	if err != nil {
		return Geometry{}, err
	}

	geo := nor("", capacity)
	switch mode {
	case sfdp.AddressMode3Byte:
		if geo.AddressBytes != 3 {
			return Geometry{}, fmt.Errorf(
				"%w: %d bytes with 3-byte addressing", ErrGeometry, capacity,
			)
		}
	case sfdp.AddressMode4Byte:
		geo.AddressBytes = 4
	}
	if capacity < int64(geo.BlockSize) {
		geo.BlockSize = int(capacity)
	}
	if op != opSectorErase {
		geo.SectorErase = op
	}
	if err := geo.Validate(); err != nil {
		return Geometry{}, err
	}
	return geo, nil
}
