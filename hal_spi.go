package spimem

import (
	"context"
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// NewSPIDev returns an object that communicates over a periph.io SPI port.
//
// The returned io.Closer closes the port when it implements io.Closer.
func NewSPIDev(ctx context.Context, cfg IfaceConfig) (*Dev, io.Closer, error) {
	if cfg.SPI.Port == nil {
		return nil, nil, errors.New("spimem: no spi port configured")
	}
	mode := cfg.SPI.Mode
	if cfg.SPI.CS != nil {
		mode |= spi.NoCS
	}
	conn, err := cfg.SPI.Port.Connect(cfg.SPI.MaxSpeed, mode, 8)
	if err != nil {
		return nil, nil, fmt.Errorf("spimem: failed to connect to spi port: %w", err)
	}

	hal, err := newHALSPI(conn, cfg.SPI.CS)
	if err != nil {
		return nil, nil, err
	}
	d, err := New(ctx, hal, cfg)
	if err != nil {
		return nil, nil, err
	}
	closer, ok := cfg.SPI.Port.(io.Closer)
	if !ok {
		closer = nopCloser{}
	}
	return d, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// halSPI runs transactions on a spi.Conn.
//
// With a GPIO chip select every transfer is sent immediately. Otherwise the
// transfers are queued and sent as one TxPackets call on Deselect, keeping
// the port chip select asserted between packets.
type halSPI struct {
	conn spi.Conn
	cs   gpio.PinOut
	pkts []spi.Packet
}

func newHALSPI(conn spi.Conn, cs gpio.PinOut) (*halSPI, error) {
	h := &halSPI{conn: conn, cs: cs}
	if cs != nil {
		if err := cs.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("spimem: failed to release chip select: %w", err)
		}
	}
	return h, nil
}

func (h *halSPI) Select() error {
	h.pkts = h.pkts[:0]
	if h.cs != nil {
		return h.cs.Out(gpio.Low)
	}
	return nil
}

func (h *halSPI) Deselect() error {
	if h.cs != nil {
		return h.cs.Out(gpio.High)
	}
	if len(h.pkts) == 0 {
		return nil
	}
	for i := range h.pkts {
		h.pkts[i].KeepCS = i < len(h.pkts)-1
	}
	err := h.conn.TxPackets(h.pkts)
	h.pkts = h.pkts[:0]
	return err
}

func (h *halSPI) Transfer(p []byte) error {
	w := append([]byte(nil), p...)
	if h.cs != nil {
		return h.conn.Tx(w, p)
	}
	h.pkts = append(h.pkts, spi.Packet{W: w, R: p, BitsPerWord: 8})
	return nil
}

func (h *halSPI) Write(p []byte) error {
	if h.cs != nil {
		return h.conn.Tx(p, nil)
	}
	w := append([]byte(nil), p...)
	h.pkts = append(h.pkts, spi.Packet{W: w, BitsPerWord: 8})
	return nil
}
