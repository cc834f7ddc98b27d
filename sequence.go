package spimem

import (
	"context"
	"fmt"
	"time"
)

// transaction runs fn with chip select asserted. Chip select is released
// also when fn fails; the first error is returned.
func (d *Dev) transaction(fn func() error) (err error) {
	if err := d.hal.Select(); err != nil {
		return transportError(err)
	}
	defer func() {
		if e := d.hal.Deselect(); e != nil && err == nil {
			err = transportError(e)
		}
	}()
	return fn()
}

// execute sends c in one transaction and clocks len(rx) bytes into rx after
// the frame.
func (d *Dev) execute(c *command, rx []byte) error {
	frame, err := d.enc.Encode(c)
	if err != nil {
		return err
	}
	return d.transaction(func() error {
		if err := d.hal.Write(frame); err != nil {
			return transportError(err)
		}
		if len(rx) == 0 {
			return nil
		}
		if err := d.hal.Transfer(rx); err != nil {
			return transportError(err)
		}
		return nil
	})
}

func (d *Dev) readStatus() (Status, error) {
	var rx [1]byte
	if err := d.execute(newReadStatusCommand(), rx[:]); err != nil {
		return 0, err
	}
	return Status(rx[0]), nil
}

// writeEnable sets the write enable latch and verifies it in the status
// register.
func (d *Dev) writeEnable() error {
	if err := d.execute(newWriteEnableCommand(), nil); err != nil {
		return err
	}
	st, err := d.readStatus()
	if err != nil {
		return err
	}
	if !st.WriteEnabled() {
		return fmt.Errorf("%w: status %s", ErrLatch, st)
	}
	return nil
}

// waitReady reads the status register until the chip is not busy.
//
// There is no limit on the number of polls; the context is checked between
// polls.
func (d *Dev) waitReady(ctx context.Context) error {
	for polls := 1; ; polls++ {
		st, err := d.readStatus()
		if err != nil {
			return err
		}
		if !st.Busy() {
			d.log.Printf("spimem: ready after %d polls", polls)
			return nil
		}

		if d.cfg.PollInterval <= 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("spimem: waiting for ready: %w", err)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("spimem: waiting for ready: %w", ctx.Err())
		case <-time.After(d.cfg.PollInterval):
		}
	}
}

// modify runs a program or erase command: write enable, c, then wait until
// the chip finished.
func (d *Dev) modify(ctx context.Context, c *command) error {
	if err := d.writeEnable(); err != nil {
		return err
	}
	if err := d.execute(c, nil); err != nil {
		return err
	}
	return d.waitReady(ctx)
}

// program writes p at addr, one page at a time.
func (d *Dev) program(ctx context.Context, addr uint32, p []byte) error {
	for _, c := range d.geo.pageChunks(addr, len(p)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := p[c.offset : c.offset+c.size]
		if err := d.modify(ctx, newPageProgramCommand(&d.geo, c.addr, data)); err != nil {
			return err
		}
	}
	return nil
}
