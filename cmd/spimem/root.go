package main

import (
	"context"
	"flag"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"periph.io/x/conn/v3/physic"
)

const envPrefix = "SPIMEM"

type rootConfig struct {
	verbose      bool
	logLevel     string
	iface        string
	port         string
	cs           string
	speed        physic.Frequency
	mode         int
	chip         string
	devIndex     int
	simImage     string
	pollInterval time.Duration
}

func (c *rootConfig) registerFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "trace every bus transaction")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&c.iface, "i", "spi", "interface type, spi, hid or sim")
	fs.StringVar(&c.port, "port", "", "periph.io spi port name, empty for the first port")
	fs.StringVar(&c.cs, "cs", "", "gpio pin driven as chip select, empty for the port chip select")
	c.speed = defaultSpeed
	fs.Var(&c.speed, "speed", "spi clock frequency, eg 1MHz")
	fs.IntVar(&c.mode, "mode", 0, "spi mode, 0 to 3")
	fs.StringVar(&c.chip, "chip", "", "chip name, detected from the JEDEC ID when empty")
	fs.IntVar(&c.devIndex, "dev-index", 0, "device index when enumerating hid bridges")
	fs.StringVar(&c.simImage, "sim-image", "", "binary image preloaded into the simulated chip")
	fs.DurationVar(&c.pollInterval, "poll-interval", 0, "delay between status reads while the chip is busy")
}

func (c *rootConfig) Exec(context.Context, []string) error {
	return flag.ErrHelp
}

func newRootCmd() (*ffcli.Command, *rootConfig) {
	var cfg rootConfig

	fs := flag.NewFlagSet("spimem", flag.ExitOnError)
	cfg.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "spimem",
		ShortUsage: "spimem [flags] <subcommand>",
		ShortHelp:  "Utilities to read, program and erase 25-series SPI flash chips.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	}), &cfg
}

var spimemLongHelp = `

GENERAL
Addresses are hexadecimal, with or without 0x prefix. Lengths are decimal
unless prefixed with 0x and accept a k or M suffix.

Every flag can also be set with an environment variable, eg SPIMEM_PORT or
SPIMEM_LOG_LEVEL.

Chips without a JEDEC ID, like the Microchip 25AA1024 EEPROM, need -chip.`
