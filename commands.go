package spimem

// Command opcodes.
//
// The 4-byte variants take a 32 bit address without switching the chip into
// 4-byte address mode; they are selected when the geometry has four address
// bytes.
const (
	opRead          = 0x03 // READ DATA
	opRead4         = 0x13 // READ DATA with 4-byte address
	opPageProgram   = 0x02 // PAGE PROGRAM (WRITE on EEPROMs)
	opPageProgram4  = 0x12 // PAGE PROGRAM with 4-byte address
	opSectorErase   = 0x20 // SECTOR ERASE (4 KiB on most flash)
	opSectorErase4  = 0x21 // SECTOR ERASE with 4-byte address
	opBlockErase    = 0xd8 // BLOCK ERASE (64 KiB on most flash)
	opBlockErase4   = 0xdc // BLOCK ERASE with 4-byte address
	opChipErase     = 0xc7 // CHIP ERASE
	opReadStatus    = 0x05 // READ STATUS REGISTER
	opWriteEnable   = 0x06 // WRITE ENABLE, sets WEL
	opWriteDisable  = 0x04 // WRITE DISABLE, clears WEL
	opReadJEDECID   = 0x9f // READ JEDEC ID
	opReadSFDP      = 0x5a // READ SFDP
	opPageErase25AA = 0x42 // PAGE ERASE on Microchip 25AA/25LC EEPROMs
)

const (
	// jedecIDSize is the manufacturer, memory type and capacity bytes.
	jedecIDSize = 3
	// sfdpAddressBytes is fixed by JESD216 regardless of the array addressing.
	sfdpAddressBytes = 3
	// sfdpDummyBytes is the 8 wait cycles after the SFDP address.
	sfdpDummyBytes = 1
)

func newReadCommand(geo *Geometry, addr uint32) *command {
	return &command{
		opcode:  pick(geo, opRead, opRead4),
		address: addr,
		hasAddr: true,
	}
}

func newPageProgramCommand(geo *Geometry, addr uint32, data []byte) *command {
	return &command{
		opcode:  pick(geo, opPageProgram, opPageProgram4),
		address: addr,
		hasAddr: true,
		data:    data,
		program: true,
	}
}

func newSectorEraseCommand(geo *Geometry, addr uint32) *command {
	op := pick(geo, opSectorErase, opSectorErase4)
	if geo.SectorErase != 0 {
		op = geo.SectorErase
	}
	return &command{opcode: op, address: addr, hasAddr: true}
}

func newBlockEraseCommand(geo *Geometry, addr uint32) *command {
	op := pick(geo, opBlockErase, opBlockErase4)
	if geo.BlockErase != 0 {
		op = geo.BlockErase
	}
	return &command{opcode: op, address: addr, hasAddr: true}
}

func newChipEraseCommand() *command {
	return &command{opcode: opChipErase}
}

func newReadStatusCommand() *command {
	return &command{opcode: opReadStatus}
}

func newWriteEnableCommand() *command {
	return &command{opcode: opWriteEnable}
}

func newWriteDisableCommand() *command {
	return &command{opcode: opWriteDisable}
}

func newReadJEDECIDCommand() *command {
	return &command{opcode: opReadJEDECID}
}

func newReadSFDPCommand(addr uint32) *command {
	return &command{
		opcode:    opReadSFDP,
		address:   addr,
		hasAddr:   true,
		addrBytes: sfdpAddressBytes,
		dummy:     sfdpDummyBytes,
	}
}

// pick returns op4 for geometries addressed with four bytes.
func pick(geo *Geometry, op, op4 byte) byte {
	if geo.AddressBytes == 4 {
		return op4
	}
	return op
}
