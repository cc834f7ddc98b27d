package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type eraseConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	all        bool
	blocks     int
}

func (c *eraseConfig) Exec(ctx context.Context, args []string) error {
	if c.all == (len(args) == 1) {
		return errors.New("erase: need either <address> or -all")
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

	if c.all {
		log.Info("erasing all blocks")
		if err := d.EraseAll(ctx); err != nil {
			return err
		}
		log.Info("full erase complete")
		return nil
	}

	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	n := c.blocks * d.Geometry().BlockSize
	log.Infof("erasing %d blocks at address 0x%08x", c.blocks, addr)
	if err := d.Erase(ctx, addr, n); err != nil {
		return err
	}
	log.Info("erase complete")
	return nil
}

func newEraseCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := eraseConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem erase", flag.ExitOnError)
	fs.BoolVar(&cfg.all, "all", false, "erase the whole chip")
	fs.IntVar(&cfg.blocks, "count", 1, "number of blocks to erase")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "erase",
		ShortUsage: "erase [flags] <address> | erase -all",
		ShortHelp:  "Erases blocks starting at the address, or the whole chip.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}
