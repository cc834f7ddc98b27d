package spimem

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/karalabe/usb"
)

// ErrUSBNotSupported is returned when the USB support is missing.
//
// When building, CGO is required for USB support. If CGO is not enabled, the
// HID interface will not be available.
var ErrUSBNotSupported = errors.New("spimem: usb support is missing")

// NewHIDDev returns an object that communicates through an MCP2210 USB-HID
// to SPI bridge.
func NewHIDDev(ctx context.Context, cfg IfaceConfig) (*Dev, io.Closer, error) {
	if !usb.Supported() {
		return nil, nil, ErrUSBNotSupported
	}

	deviceInfos, err := usb.EnumerateHid(cfg.HID.VendorID, cfg.HID.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("spimem: failed to get hid devices: %w", err)
	}
	if cfg.HID.DevIndex < 0 || cfg.HID.DevIndex >= len(deviceInfos) {
		return nil, nil, fmt.Errorf(
			"spimem: hid device %d not found, %d present",
			cfg.HID.DevIndex, len(deviceInfos),
		)
	}

	hid, err := deviceInfos[cfg.HID.DevIndex].Open()
	if err != nil {
		return nil, nil, fmt.Errorf("spimem: %w", err)
	}
	hal, err := newHALMCP2210(hid, cfg.HID)
	if err != nil {
		hid.Close()
		return nil, nil, err
	}
	d, err := New(ctx, hal, cfg)
	if err != nil {
		hid.Close()
		return nil, nil, err
	}
	return d, hid, nil
}

// MCP2210 commands and status codes.
const (
	mcpGetChipSettings     = 0x20
	mcpSetChipSettings     = 0x21
	mcpSetTransferSettings = 0x40
	mcpTransfer            = 0x42

	mcpStatusOK       = 0x00
	mcpStatusBusy     = 0xf7
	mcpStatusPending  = 0xf8
	mcpEngineFinished = 0x10

	mcpReportSize   = 64
	mcpMaxChunk     = 60
	mcpMaxTransfer  = 0xffff
	mcpDesignCS     = 0x01
	mcpNumGPPins    = 9
	mcpMaxRetries   = 100
	mcpChipSettings = 4
)

// halMCP2210 queues the transfers of a transaction and runs them as one
// MCP2210 SPI transfer on Deselect. The bridge drives chip select itself.
type halMCP2210 struct {
	usb  usb.Device
	cfg  HIDConfig
	tx   []byte
	segs []mcpSegment
}

// mcpSegment is one Transfer or Write of the queued transaction.
type mcpSegment struct {
	p    []byte
	recv bool
}

func newHALMCP2210(dev usb.Device, cfg HIDConfig) (*halMCP2210, error) {
	if cfg.ChipSelect >= mcpNumGPPins {
		return nil, fmt.Errorf("spimem: invalid mcp2210 chip select GP%d", cfg.ChipSelect)
	}
	if cfg.Mode > 3 {
		return nil, fmt.Errorf("spimem: invalid spi mode %d", cfg.Mode)
	}
	h := &halMCP2210{usb: dev, cfg: cfg}
	if err := h.designateCS(); err != nil {
		return nil, err
	}
	return h, nil
}

// command sends one report and returns the response.
func (h *halMCP2210) command(req *[mcpReportSize]byte) (*[mcpReportSize]byte, error) {
	if _, err := h.usb.Write(req[:]); err != nil {
		return nil, err
	}
	var resp [mcpReportSize]byte
	n, err := h.usb.Read(resp[:])
	if err != nil {
		return nil, err
	}
	if n < 4 || resp[0] != req[0] {
		return nil, fmt.Errorf("spimem: unexpected mcp2210 response % x", resp[:n])
	}
	return &resp, nil
}

// designateCS configures the chip select pin as a dedicated chip select,
// keeping the other pin settings.
func (h *halMCP2210) designateCS() error {
	req := [mcpReportSize]byte{mcpGetChipSettings}
	resp, err := h.command(&req)
	if err != nil {
		return err
	}
	if resp[1] != mcpStatusOK {
		return fmt.Errorf("spimem: mcp2210 get chip settings status 0x%02x", resp[1])
	}

	req = [mcpReportSize]byte{mcpSetChipSettings}
	copy(req[mcpChipSettings:], resp[mcpChipSettings:mcpChipSettings+15])
	req[mcpChipSettings+int(h.cfg.ChipSelect)] = mcpDesignCS
	if resp, err = h.command(&req); err != nil {
		return err
	}
	if resp[1] != mcpStatusOK {
		return fmt.Errorf("spimem: mcp2210 set chip settings status 0x%02x", resp[1])
	}
	return nil
}

func (h *halMCP2210) setTransferSettings(n int) error {
	idle := uint16(1<<mcpNumGPPins - 1)
	active := idle &^ (1 << h.cfg.ChipSelect)

	req := [mcpReportSize]byte{mcpSetTransferSettings}
	binary.LittleEndian.PutUint32(req[4:], h.cfg.BitRate)
	binary.LittleEndian.PutUint16(req[8:], idle)
	binary.LittleEndian.PutUint16(req[10:], active)
	// Chip select to data, data to chip select and inter byte delays are
	// left at zero.
	binary.LittleEndian.PutUint16(req[18:], uint16(n))
	req[20] = h.cfg.Mode
	resp, err := h.command(&req)
	if err != nil {
		return err
	}
	if resp[1] != mcpStatusOK {
		return fmt.Errorf("spimem: mcp2210 set transfer settings status 0x%02x", resp[1])
	}
	return nil
}

func (h *halMCP2210) Select() error {
	h.tx = h.tx[:0]
	h.segs = h.segs[:0]
	return nil
}

func (h *halMCP2210) Deselect() error {
	defer func() {
		h.tx = h.tx[:0]
		h.segs = h.segs[:0]
	}()
	if len(h.tx) == 0 {
		return nil
	}
	rx, err := h.transfer(h.tx)
	if err != nil {
		return err
	}

	offset := 0
	for _, seg := range h.segs {
		if seg.recv {
			copy(seg.p, rx[offset:])
		}
		offset += len(seg.p)
	}
	return nil
}

// transfer runs tx as one SPI transaction and returns the bytes received.
func (h *halMCP2210) transfer(tx []byte) ([]byte, error) {
	if len(tx) > mcpMaxTransfer {
		return nil, fmt.Errorf("spimem: mcp2210 transaction of %d bytes exceeds %d", len(tx), mcpMaxTransfer)
	}
	if err := h.setTransferSettings(len(tx)); err != nil {
		return nil, err
	}

	rx := make([]byte, 0, len(tx))
	sent, retries := 0, 0
	for {
		n := len(tx) - sent
		if n > mcpMaxChunk {
			n = mcpMaxChunk
		}
		req := [mcpReportSize]byte{mcpTransfer, byte(n)}
		copy(req[4:], tx[sent:sent+n])
		resp, err := h.command(&req)
		if err != nil {
			return nil, err
		}

		switch resp[1] {
		case mcpStatusOK:
		case mcpStatusBusy, mcpStatusPending:
			if retries++; retries > mcpMaxRetries {
				return nil, fmt.Errorf("spimem: mcp2210 busy, status 0x%02x", resp[1])
			}
			continue
		default:
			return nil, fmt.Errorf("spimem: mcp2210 transfer status 0x%02x", resp[1])
		}
		sent += n

		got := int(resp[2])
		if got > mcpMaxChunk {
			return nil, fmt.Errorf("spimem: mcp2210 returned %d bytes", got)
		}
		rx = append(rx, resp[4:4+got]...)
		if resp[3] == mcpEngineFinished && sent == len(tx) {
			break
		}
		// An engine that neither takes nor returns data counts as busy.
		if n > 0 || got > 0 {
			retries = 0
		} else if retries++; retries > mcpMaxRetries {
			return nil, fmt.Errorf("spimem: mcp2210 stalled after %d of %d bytes", len(rx), len(tx))
		}
	}
	if len(rx) != len(tx) {
		return nil, fmt.Errorf("spimem: mcp2210 received %d of %d bytes", len(rx), len(tx))
	}
	return rx, nil
}

func (h *halMCP2210) Transfer(p []byte) error {
	h.tx = append(h.tx, p...)
	h.segs = append(h.segs, mcpSegment{p, true})
	return nil
}

func (h *halMCP2210) Write(p []byte) error {
	h.tx = append(h.tx, p...)
	h.segs = append(h.segs, mcpSegment{p, false})
	return nil
}
