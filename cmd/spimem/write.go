package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/northvolt/go-spimem"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type writeConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	data       string
	erase      bool
	verify     bool
}

func (c *writeConfig) Exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("write: need <address>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	var data []byte
	if c.data != "" {
		data, err = parseHexData(c.data)
	} else {
		data, err = io.ReadAll(c.in)
	}
	if err != nil {
		return err
	}

	log, err := newLogger(c.rootConfig, c.err)
	if err != nil {
		return err
	}
	d, closer, err := newFlash(ctx, c.rootConfig, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	if c.erase {
		start, n := sectorSpan(d.Geometry(), addr, len(data))
		log.Infof("erasing %d bytes at address 0x%08x", n, start)
		if err := d.Erase(ctx, start, n); err != nil {
			return err
		}
	}

	log.Infof("writing %d bytes to address 0x%08x", len(data), addr)
	if err := d.Write(ctx, addr, data); err != nil {
		return err
	}
	if c.verify {
		if err := verify(ctx, d, addr, data); err != nil {
			return err
		}
	}
	log.Info("write complete")
	return nil
}

// parseHexData decodes hex bytes, ignoring white space and 0x prefixes.
func parseHexData(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.Join(strings.Fields(s), "")
	return hex.DecodeString(s)
}

// sectorSpan returns the sector aligned range covering n bytes at addr.
func sectorSpan(geo spimem.Geometry, addr uint32, n int) (uint32, int) {
	if n == 0 {
		return addr, 0
	}
	size := int64(geo.SectorSize)
	start := int64(addr) / size * size
	end := (int64(addr) + int64(n) + size - 1) / size * size
	if end > geo.Capacity {
		end = geo.Capacity
	}
	return uint32(start), int(end - start)
}

func verify(ctx context.Context, d *spimem.Dev, addr uint32, want []byte) error {
	got := make([]byte, len(want))
	if err := d.Read(ctx, addr, got); err != nil {
		return err
	}
	if i := mismatch(got, want); i >= 0 {
		return fmt.Errorf("verify: mismatch at address 0x%08x", addr+uint32(i))
	}
	return nil
}

// mismatch returns the index of the first differing byte or -1.
func mismatch(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

func newWriteCmd(rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := writeConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem write", flag.ExitOnError)
	fs.StringVar(&cfg.data, "data", "", "data to write in hex, read from stdin when empty")
	fs.BoolVar(&cfg.erase, "erase", false, "erase the covered sectors first")
	fs.BoolVar(&cfg.verify, "verify", true, "read back and compare the written data")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "write",
		ShortUsage: "write [flags] <address>",
		ShortHelp:  "Programs data from -data or stdin at the address.",
		LongHelp:   writeLongHelp,
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}

const writeLongHelp = `Programs data from -data or stdin at the address.

Flash can only clear bits. Erase first or use -erase, which also erases any
other data in the covered sectors.`
