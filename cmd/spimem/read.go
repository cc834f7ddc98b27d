package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type readConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	raw        bool
}

func (c *readConfig) Exec(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("read: need <address> <length>")
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
	log.Infof("reading %d bytes from address 0x%08x", n, addr)

	buf := make([]byte, n)
	if err := d.Read(ctx, addr, buf); err != nil {
		return err
	}
	if c.raw {
		_, err = c.out.Write(buf)
		return err
	}
	_, err = io.WriteString(c.out, addressedHex(addr, buf)+"\n")
	return err
}

func newReadCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := readConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem read", flag.ExitOnError)
	fs.BoolVar(&cfg.raw, "raw", false, "write the binary data instead of hex")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "read",
		ShortUsage: "read [flags] <address> <length>",
		ShortHelp:  "Reads data from the chip and outputs on stdout.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}
