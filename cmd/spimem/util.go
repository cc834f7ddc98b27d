package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/northvolt/go-spimem"
	"github.com/northvolt/go-spimem/spimemtest"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const defaultSpeed = physic.MegaHertz

// ioChunk is the read size of dump and sum, kept below the MCP2210
// transaction limit.
const ioChunk = 32 << 10

func newFlash(ctx context.Context, c *rootConfig, log logrus.FieldLogger) (*spimem.Dev, io.Closer, error) {
	cfg, err := newIfaceConfig(c, log)
	if err != nil {
		return nil, nil, err
	}

	switch c.iface {
	case "spi":
		return newFlashSPI(ctx, c, cfg)
	case "hid":
		return newFlashHID(ctx, c, cfg)
	case "sim":
		return newFlashSim(ctx, c, cfg)
	default:
		return nil, nil, fmt.Errorf("spimem: unknown interface %q", c.iface)
	}
}

func newIfaceConfig(c *rootConfig, log logrus.FieldLogger) (spimem.IfaceConfig, error) {
	var cfg spimem.IfaceConfig
	if c.mode < 0 || c.mode > 3 {
		return cfg, fmt.Errorf("spimem: invalid spi mode %d", c.mode)
	}
	if c.chip != "" {
		geo, ok := spimem.GeometryByName(c.chip)
		if !ok {
			return cfg, fmt.Errorf("%w: %q", spimem.ErrUnknownDevice, c.chip)
		}
		cfg.Geometry = &geo
	}
	cfg.PollInterval = c.pollInterval
	if c.verbose {
		cfg.Debug = log.WithField("component", "bus")
	}
	return cfg, nil
}

func newFlashSPI(ctx context.Context, c *rootConfig, base spimem.IfaceConfig) (*spimem.Dev, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	port, err := spireg.Open(c.port)
	if err != nil {
		return nil, nil, fmt.Errorf("spimem: failed to open spi port: %w", err)
	}

	cfg := spimem.ConfigSPIDefault(port)
	cfg.Geometry = base.Geometry
	cfg.PollInterval = base.PollInterval
	cfg.Debug = base.Debug
	cfg.SPI.MaxSpeed = c.speed
	cfg.SPI.Mode = spi.Mode(c.mode)
	if c.cs != "" {
		pin := gpioreg.ByName(c.cs)
		if pin == nil {
			port.Close()
			return nil, nil, fmt.Errorf("spimem: unknown gpio %q", c.cs)
		}
		cfg.SPI.CS = pin
	}

	d, closer, err := spimem.NewSPIDev(ctx, cfg)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return d, closer, nil
}

func newFlashHID(ctx context.Context, c *rootConfig, base spimem.IfaceConfig) (*spimem.Dev, io.Closer, error) {
	cfg := spimem.ConfigMCP2210Default()
	cfg.Geometry = base.Geometry
	cfg.PollInterval = base.PollInterval
	cfg.Debug = base.Debug
	cfg.HID.DevIndex = c.devIndex
	cfg.HID.BitRate = uint32(c.speed / physic.Hertz)
	cfg.HID.Mode = uint8(c.mode)

	return spimem.NewHIDDev(ctx, cfg)
}

func newFlashSim(ctx context.Context, c *rootConfig, cfg spimem.IfaceConfig) (*spimem.Dev, io.Closer, error) {
	chip := spimemtest.New(spimemtest.W25Q16())
	if c.simImage != "" {
		image, err := os.ReadFile(c.simImage)
		if err != nil {
			return nil, nil, err
		}
		if len(image) > len(chip.Memory()) {
			return nil, nil, fmt.Errorf("spimem: image of %d bytes exceeds simulated chip", len(image))
		}
		copy(chip.Memory(), image)
	}
	d, err := spimem.New(ctx, chip, cfg)
	if err != nil {
		return nil, nil, err
	}
	return d, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(c *rootConfig, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.logLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}

// parseAddress parses a hexadecimal address with optional 0x prefix.
func parseAddress(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	addr, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(addr), nil
}

// parseSize parses a length in decimal, or hexadecimal with 0x prefix, with
// an optional k or M suffix.
func parseSize(s string) (int, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult = 1 << 10
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		mult = 1 << 20
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int(n * mult), nil
}

// parseRange parses the optional <address> <length> arguments. Missing
// arguments default to the whole chip.
func parseRange(args []string, geo spimem.Geometry) (uint32, int, error) {
	var (
		addr uint32
		n    = int(geo.Capacity)
		err  error
	)
	if len(args) > 2 {
		return 0, 0, errors.New("too many arguments")
	}
	if len(args) > 0 {
		if addr, err = parseAddress(args[0]); err != nil {
			return 0, 0, err
		}
		n = int(geo.Capacity - int64(addr))
	}
	if len(args) > 1 {
		if n, err = parseSize(args[1]); err != nil {
			return 0, 0, err
		}
	}
	if int64(addr)+int64(n) > geo.Capacity || n < 0 {
		return 0, 0, fmt.Errorf("%w: 0x%x+%d", spimem.ErrOutOfBounds, addr, n)
	}
	return addr, n, nil
}

func prettyHex(data []byte) string {
	return prettyHexIndent(data, "    ", "")
}

func prettyHexIndent(data []byte, prefix string, space string) string {
	var buf strings.Builder

	// prefix and space every 16 byte, and 2 hex, and one space/newline
	cols := 16
	size := (len(data)/cols+1)*(len(prefix)+len(space)+1) + len(data)*3
	buf.Grow(size)

	for i := range data {
		if i > 0 {
			switch i % cols {
			case 0:
				buf.WriteByte('\n')
			case cols / 2:
				buf.WriteByte(' ')
				buf.WriteString(space)
			default:
				buf.WriteByte(' ')
			}
		}
		if i%cols == 0 {
			buf.WriteString(prefix)
		}

		buf.WriteString(fmt.Sprintf("%02X", data[i:i+1]))
	}

	return buf.String()
}

// addressedHex formats data like prettyHex with the address of every line
// as prefix.
func addressedHex(addr uint32, data []byte) string {
	var buf strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		prefix := fmt.Sprintf("%08X  ", addr+uint32(i))
		buf.WriteString(prettyHexIndent(data[i:end], prefix, " "))
	}
	return buf.String()
}

func addLongHelp(cmd *ffcli.Command) *ffcli.Command {
	if cmd.LongHelp == "" {
		cmd.LongHelp = cmd.ShortHelp
	}

	cmd.LongHelp += spimemLongHelp

	return cmd
}

func envOptions() []ff.Option {
	return []ff.Option{ff.WithEnvVarPrefix(envPrefix)}
}
