package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/crypto/blake2b"
)

type sumConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
}

func (c *sumConfig) Exec(ctx context.Context, args []string) error {
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
	log.Debugf("hashing %d bytes from address 0x%08x", n, addr)

	h, err := blake2b.New256(nil)
	if err != nil {
		return err
	}
	r := io.NewSectionReader(d.ReaderAt(ctx), int64(addr), int64(n))
	if _, err := io.CopyBuffer(h, r, make([]byte, ioChunk)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "%s  0x%08x+%d\n", hex.EncodeToString(h.Sum(nil)), addr, n)
	return err
}

func newSumCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := sumConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem sum", flag.ExitOnError)
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "sum",
		ShortUsage: "sum [flags] [<address> [<length>]]",
		ShortHelp:  "Prints the BLAKE2b-256 digest of the chip, or part of it.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}
