package spimem

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

type IfaceType int

const (
	IfaceSPI IfaceType = iota
	IfaceHID
)

func (t IfaceType) String() string {
	switch t {
	case IfaceSPI:
		return "spi"
	case IfaceHID:
		return "hid"
	default:
		return "unknown"
	}
}

// IfaceConfig is the configuration object for a device.
//
// Logical device configurations describe the chip geometry and the logical
// interface.
type IfaceConfig struct {
	// IfaceType affects how communication with the device is done.
	IfaceType IfaceType
	// Geometry describes the chip. When nil the JEDEC ID is read and looked
	// up among the known chips, falling back to the SFDP tables.
	Geometry *Geometry
	// SPI contains periph.io SPI specific configuration.
	SPI SPIConfig
	// HID contains MCP2210 USB-HID bridge specific configuration.
	HID HIDConfig
	// PollInterval is the delay between status reads while the chip is
	// busy. Zero polls back to back.
	PollInterval time.Duration
	// Debug is used for debug output.
	Debug Logger
}

type SPIConfig struct {
	Port     spi.Port
	MaxSpeed physic.Frequency
	Mode     spi.Mode
	// CS is driven by the driver when set. Otherwise the port chip select
	// is used and every transaction is sent as one TxPackets call.
	CS gpio.PinOut
}

type HIDConfig struct {
	// DevIndex is the HID enumeration index to use.
	DevIndex int

	// VendorID of the bridge.
	VendorID uint16

	// ProductID of the bridge.
	ProductID uint16

	// BitRate of the SPI clock in Hz.
	BitRate uint32

	// ChipSelect is the bridge GP pin, 0 to 8, wired to the chip select.
	ChipSelect uint8

	// Mode is the SPI mode, 0 to 3.
	Mode uint8
}

// ConfigSPIDefault returns a default config for a chip on a periph.io SPI
// port using the port chip select.
func ConfigSPIDefault(port spi.Port) IfaceConfig {
	return IfaceConfig{
		IfaceType: IfaceSPI,
		SPI: SPIConfig{
			Port:     port,
			MaxSpeed: 10 * physic.MegaHertz,
			Mode:     spi.Mode0,
		},
	}
}

const (
	vendorMicrochip = 0x04d8

	productMCP2210 = 0x00de
)

// ConfigMCP2210Default returns a configuration for a chip behind an MCP2210
// USB-HID to SPI bridge with chip select on GP0.
func ConfigMCP2210Default() IfaceConfig {
	return IfaceConfig{
		IfaceType: IfaceHID,
		HID: HIDConfig{
			DevIndex:   0,
			VendorID:   vendorMicrochip,
			ProductID:  productMCP2210,
			BitRate:    1000000,
			ChipSelect: 0,
			Mode:       0,
		},
	}
}
