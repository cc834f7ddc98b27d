package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type dumpConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	file       string
	format     string
	skipErased bool
}

func (c *dumpConfig) Exec(ctx context.Context, args []string) error {
	if c.format != "ihex" && c.format != "bin" {
		return fmt.Errorf("dump: unknown format %q", c.format)
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

	addr, n, err := parseRange(args, d.Geometry())
	if err != nil {
		return err
	}

	w := c.out
	if c.file != "-" {
		f, err := os.Create(c.file)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	log.Infof("reading %d bytes from address 0x%08x to %s", n, addr, c.file)

	var ihex *ihexImage
	if c.format == "ihex" {
		ihex = newIHexImage(c.skipErased)
	}
	r := d.ReaderAt(ctx)
	buf := make([]byte, ioChunk)
	for off := 0; off < n; {
		chunk := buf
		if n-off < len(chunk) {
			chunk = chunk[:n-off]
		}
		a := addr + uint32(off)
		if _, err := r.ReadAt(chunk, int64(a)); err != nil {
			return err
		}
		off += len(chunk)

		if ihex == nil {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			continue
		}
		if err := ihex.add(a, chunk); err != nil {
			return err
		}
	}
	if ihex != nil {
		if err := ihex.dump(w); err != nil {
			return err
		}
	}
	log.Info("dump complete")
	return nil
}

func newDumpCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := dumpConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem dump", flag.ExitOnError)
	fs.StringVar(&cfg.file, "file", "dump.ihex", "output file, - for stdout")
	fs.StringVar(&cfg.format, "format", "ihex", "output format, ihex or bin")
	fs.BoolVar(&cfg.skipErased, "skip-erased", false, "leave erased lines out of ihex output")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "dump",
		ShortUsage: "dump [flags] [<address> [<length>]]",
		ShortHelp:  "Dumps the chip, or part of it, into a file.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}
