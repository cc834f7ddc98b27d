package spimem

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// fakeMCP2210 answers MCP2210 reports. SPI data is received inverted.
type fakeMCP2210 struct {
	settings [15]byte
	xfer     [mcpReportSize]byte
	total    int
	got      int
	pending  int
	stalled  bool
	reports  [][]byte
	resp     [][]byte
}

func (f *fakeMCP2210) Close() error { return nil }

func (f *fakeMCP2210) Write(b []byte) (int, error) {
	f.reports = append(f.reports, append([]byte(nil), b...))
	resp := make([]byte, mcpReportSize)
	resp[0] = b[0]
	switch b[0] {
	case mcpGetChipSettings:
		copy(resp[mcpChipSettings:], f.settings[:])
	case mcpSetChipSettings:
		copy(f.settings[:], b[mcpChipSettings:])
	case mcpSetTransferSettings:
		copy(f.xfer[:], b)
		f.total = int(binary.LittleEndian.Uint16(b[18:]))
		f.got = 0
	case mcpTransfer:
		if f.pending > 0 {
			f.pending--
			resp[1] = mcpStatusPending
			break
		}
		n := int(b[1])
		for i := 0; i < n; i++ {
			resp[4+i] = ^b[4+i]
		}
		resp[2] = byte(n)
		f.got += n
		resp[3] = 0x30
		if f.got == f.total && !f.stalled {
			resp[3] = mcpEngineFinished
		}
	}
	f.resp = append(f.resp, resp)
	return len(b), nil
}

func (f *fakeMCP2210) Read(b []byte) (int, error) {
	resp := f.resp[0]
	f.resp = f.resp[1:]
	return copy(b, resp), nil
}

func TestHALMCP2210(t *testing.T) {
	dev := &fakeMCP2210{pending: 1}
	cfg := ConfigMCP2210Default().HID
	cfg.ChipSelect = 2
	h, err := newHALMCP2210(dev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := dev.settings[2]; got != mcpDesignCS {
		t.Errorf("GP2 designation %02x, want %02x", got, mcpDesignCS)
	}

	frame := []byte{0x03, 0x00, 0x00, 0x00}
	rx := make([]byte, 100)
	if err := h.Select(); err != nil {
		t.Fatal(err)
	}
	if err := h.Write(frame); err != nil {
		t.Fatal(err)
	}
	if err := h.Transfer(rx); err != nil {
		t.Fatal(err)
	}
	if err := h.Deselect(); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(rx, bytes.Repeat([]byte{0xff}, 100)) {
		t.Errorf("unexpected rx % x", rx)
	}
	if got := binary.LittleEndian.Uint32(dev.xfer[4:]); got != cfg.BitRate {
		t.Errorf("bit rate %d, want %d", got, cfg.BitRate)
	}
	if idle, active := binary.LittleEndian.Uint16(dev.xfer[8:]), binary.LittleEndian.Uint16(dev.xfer[10:]); idle != 0x1ff || active != 0x1fb {
		t.Errorf("chip select idle %03x active %03x", idle, active)
	}
	if dev.total != 104 {
		t.Errorf("transaction size %d, want 104", dev.total)
	}

	// Chip settings, transfer settings, one retried and two data reports.
	if got, want := len(dev.reports), 6; got != want {
		t.Errorf("got %d reports, want %d", got, want)
	}
}

func TestHALMCP2210Limits(t *testing.T) {
	if _, err := newHALMCP2210(&fakeMCP2210{}, HIDConfig{ChipSelect: 9}); err == nil {
		t.Error("expected error for GP9")
	}

	h, err := newHALMCP2210(&fakeMCP2210{}, ConfigMCP2210Default().HID)
	if err != nil {
		t.Fatal(err)
	}
	_ = h.Select()
	_ = h.Transfer(make([]byte, mcpMaxTransfer+1))
	if err := h.Deselect(); err == nil {
		t.Error("expected error for oversized transaction")
	}
}

func TestHALMCP2210Stalled(t *testing.T) {
	dev := &fakeMCP2210{stalled: true}
	h, err := newHALMCP2210(dev, ConfigMCP2210Default().HID)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Select(); err != nil {
		t.Fatal(err)
	}
	if err := h.Transfer(make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	if err := h.Deselect(); err == nil {
		t.Fatal("expected error from a stalled transfer")
	}

	// Chip settings, transfer settings, one data report, then the empty
	// reports up to the retry limit.
	if got, want := len(dev.reports), 4+mcpMaxRetries+1; got != want {
		t.Errorf("got %d reports, want %d", got, want)
	}
}
