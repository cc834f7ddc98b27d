package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/marcinbor85/gohex"
	"github.com/northvolt/go-spimem"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"
)

type loadConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	format     string
	address    string
	erase      bool
	verify     bool
}

func (c *loadConfig) Exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("load: need <file>")
	}
	segs, err := c.readSegments(args[0])
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

	if err := loadSegments(ctx, d, log, segs, c.erase, c.verify); err != nil {
		return err
	}
	log.Info("load complete")
	return nil
}

// loadSegments programs segs. Erasing covers the union of the sectors of
// all segments and completes before the first write, so segments sharing a
// sector survive. Verification runs once everything is written.
func loadSegments(ctx context.Context, d *spimem.Dev, log logrus.FieldLogger, segs []gohex.DataSegment, erase, check bool) error {
	geo := d.Geometry()
	for _, seg := range segs {
		if int64(seg.Address)+int64(len(seg.Data)) > geo.Capacity {
			return fmt.Errorf("load: %d bytes at 0x%08x exceed the chip", len(seg.Data), seg.Address)
		}
	}
	if erase {
		for _, s := range eraseSpans(geo, segs) {
			log.Infof("erasing %d bytes at address 0x%08x", s.n, s.addr)
			if err := d.Erase(ctx, s.addr, s.n); err != nil {
				return err
			}
		}
	}
	for _, seg := range segs {
		log.Infof("writing %d bytes at address 0x%08x", len(seg.Data), seg.Address)
		if err := d.Write(ctx, seg.Address, seg.Data); err != nil {
			return err
		}
	}
	if check {
		for _, seg := range segs {
			if err := verify(ctx, d, seg.Address, seg.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

type span struct {
	addr uint32
	n    int
}

// eraseSpans returns the sector aligned ranges covering segs, merged where
// they overlap or touch.
func eraseSpans(geo spimem.Geometry, segs []gohex.DataSegment) []span {
	var spans []span
	for _, seg := range segs {
		addr, n := sectorSpan(geo, seg.Address, len(seg.Data))
		if n > 0 {
			spans = append(spans, span{addr, n})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].addr < spans[j].addr })

	var merged []span
	for _, s := range spans {
		if k := len(merged) - 1; k >= 0 && int64(s.addr) <= int64(merged[k].addr)+int64(merged[k].n) {
			if end := int64(s.addr) + int64(s.n); end > int64(merged[k].addr)+int64(merged[k].n) {
				merged[k].n = int(end - int64(merged[k].addr))
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func (c *loadConfig) readSegments(name string) ([]gohex.DataSegment, error) {
	r := c.in
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	switch c.format {
	case "ihex":
		return readIHex(r)
	case "bin":
		addr, err := parseAddress(c.address)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return []gohex.DataSegment{{Address: addr, Data: data}}, nil
	default:
		return nil, fmt.Errorf("load: unknown format %q", c.format)
	}
}

func newLoadCmd(rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := loadConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem load", flag.ExitOnError)
	fs.StringVar(&cfg.format, "format", "ihex", "input format, ihex or bin")
	fs.StringVar(&cfg.address, "address", "0", "load address of bin input in hex")
	fs.BoolVar(&cfg.erase, "erase", false, "erase the covered sectors first")
	fs.BoolVar(&cfg.verify, "verify", true, "read back and compare the written data")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "load",
		ShortUsage: "load [flags] <file>",
		ShortHelp:  "Programs the chip from an Intel HEX or binary file, - for stdin.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}
