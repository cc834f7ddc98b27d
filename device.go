package spimem

import (
	"strings"
)

const (
	kib = 1 << 10
	mib = 1 << 20
)

// nor returns the common geometry of 25-series NOR flash: 256 byte pages,
// 4 KiB sectors and 64 KiB blocks.
func nor(name string, capacity int64) Geometry {
	addrBytes := 3
	if capacity > 16*mib {
		addrBytes = 4
	}
	return Geometry{
		Name:         name,
		AddressBytes: addrBytes,
		Capacity:     capacity,
		PageSize:     256,
		SectorSize:   4 * kib,
		BlockSize:    64 * kib,
	}
}

// knownDevices maps JEDEC IDs to geometries.
//
// Some manufacturers reuse the memory type byte for several families, so the
// full 3 byte ID is used as key.
var knownDevices = map[JEDECID]Geometry{
	{0xef, 0x40, 0x15}: nor("Winbond W25Q16", 2*mib),
	{0xef, 0x40, 0x16}: nor("Winbond W25Q32", 4*mib),
	{0xef, 0x40, 0x17}: nor("Winbond W25Q64", 8*mib),
	{0xef, 0x40, 0x18}: nor("Winbond W25Q128", 16*mib),
	{0xef, 0x70, 0x18}: nor("Winbond W25Q128JV-M", 16*mib),
	{0xef, 0x40, 0x19}: nor("Winbond W25Q256", 32*mib),
	{0x20, 0xba, 0x16}: nor("Micron N25Q032", 4*mib),
	{0xc2, 0x20, 0x19}: nor("Macronix MX25L25645G", 32*mib),
	{0xc8, 0x40, 0x16}: nor("GigaDevice GD25Q32", 4*mib),
	{0x1f, 0x84, 0x01}: nor("Adesto AT25SF041", 512*kib),
	{0x9d, 0x60, 0x18}: nor("ISSI IS25LP128", 16*mib),
}

// Microchip25AA1024 is the geometry of the Microchip 25AA1024/25LC1024 1 Mbit
// EEPROM. The device has no READ JEDEC ID command; pass it in IfaceConfig.
//
// Its PAGE ERASE serves as sector erase and its 32 KiB SECTOR ERASE as block
// erase.
var Microchip25AA1024 = Geometry{
	Name:         "Microchip 25AA1024",
	AddressBytes: 3,
	Capacity:     128 * kib,
	PageSize:     256,
	SectorSize:   256,
	BlockSize:    32 * kib,
	SectorErase:  opPageErase25AA,
	BlockErase:   opBlockErase,
}

// LookupGeometry returns the geometry of a known chip.
func LookupGeometry(id JEDECID) (Geometry, bool) {
	g, ok := knownDevices[id]
	return g, ok
}

// GeometryByName returns the geometry of a known chip by its name.
//
// The comparison ignores case and accepts the part number without the
// manufacturer, e.g. "w25q128".
func GeometryByName(name string) (Geometry, bool) {
	for _, g := range append(knownGeometries(), Microchip25AA1024) {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
		if _, part, ok := strings.Cut(g.Name, " "); ok && strings.EqualFold(part, name) {
			return g, true
		}
	}
	return Geometry{}, false
}

// knownGeometries returns the geometries of all chips that can be detected
// by their JEDEC ID.
func knownGeometries() []Geometry {
	geos := make([]Geometry, 0, len(knownDevices))
	for _, g := range knownDevices {
		geos = append(geos, g)
	}
	return geos
}

// manufacturers holds JEDEC JEP106 bank 1 codes of common flash vendors.
var manufacturers = map[byte]string{
	0x01: "Spansion/Cypress",
	0x1f: "Adesto",
	0x20: "Micron",
	0x9d: "ISSI",
	0xbf: "Microchip/SST",
	0xc2: "Macronix",
	0xc8: "GigaDevice",
	0xef: "Winbond",
}

// ManufacturerName returns the vendor name of the JEDEC manufacturer code.
func ManufacturerName(code byte) string {
	if name, ok := manufacturers[code]; ok {
		return name
	}
	return "unknown"
}
