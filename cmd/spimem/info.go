package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/template"

	"github.com/northvolt/go-spimem"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type infoConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	json       bool
}

func (c *infoConfig) Exec(ctx context.Context, _ []string) error {
	log, err := newLogger(c.rootConfig, c.err)
	if err != nil {
		return err
	}
	log.Debug("info")

	d, closer, err := newFlash(ctx, c.rootConfig, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	di, err := getDeviceInfo(ctx, d)
	if err != nil {
		return err
	}

	if c.json {
		return writeJSON(c.out, di)
	} else {
		return writeText(c.out, di)
	}
}

const deviceInfoTemplate = `
Device:
    {{ .Name }}

JEDEC ID:
{{ hex .JEDECID }}
    Manufacturer {{ .Manufacturer }}

Geometry:
    Capacity      {{ .Capacity }} bytes
    Page size     {{ .PageSize }} bytes
    Sector size   {{ .SectorSize }} bytes
    Block size    {{ .BlockSize }} bytes
    Address bytes {{ .AddressBytes }}

Status register:
    {{ .Status }}
{{ if .SFDP }}
SFDP:
    Revision {{ .SFDP }}
{{ end }}
Done
`

func writeText(w io.Writer, di *deviceInfo) error {
	funcs := template.FuncMap{
		"hex": prettyHex,
	}
	t, err := template.New("info").Funcs(funcs).Parse(deviceInfoTemplate)
	if err != nil {
		return err
	}

	return t.Execute(w, di)
}

func writeJSON(w io.Writer, data any) error {
	j, err := json.MarshalIndent(data, "", " ")
	if err != nil {
		return err
	}
	_, err = w.Write(j)
	return err
}

func newInfoCmd(
	rootConfig *rootConfig, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := infoConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("spimem info", flag.ExitOnError)
	fs.BoolVar(&cfg.json, "json", false, "output in json mode")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "info",
		ShortUsage: "info",
		ShortHelp:  "Returns the identification, geometry and status of the chip.",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec:       cfg.Exec,
	})
}

type deviceInfo struct {
	Name         string `json:"name"`
	JEDECID      []byte `json:"jedec_id"`
	Manufacturer string `json:"manufacturer"`
	Capacity     int64  `json:"capacity"`
	PageSize     int    `json:"page_size"`
	SectorSize   int    `json:"sector_size"`
	BlockSize    int    `json:"block_size"`
	AddressBytes int    `json:"address_bytes"`
	Status       string `json:"status"`
	SFDP         string `json:"sfdp,omitempty"`
}

func getDeviceInfo(ctx context.Context, d *spimem.Dev) (*deviceInfo, error) {
	geo := d.Geometry()
	var di = &deviceInfo{
		Name:         geo.Name,
		Capacity:     geo.Capacity,
		PageSize:     geo.PageSize,
		SectorSize:   geo.SectorSize,
		BlockSize:    geo.BlockSize,
		AddressBytes: geo.AddressBytes,
	}

	ident, err := d.ReadIdentification(ctx)
	if err != nil {
		return nil, err
	}
	id := ident.JEDECID()
	di.JEDECID = id[:]
	di.Manufacturer = ident.String()

	st, err := d.ReadStatus(ctx)
	if err != nil {
		return di, err
	}
	di.Status = st.String()

	// SFDP is optional; chips without it read as erased.
	if s, err := d.SFDP(ctx); err == nil {
		di.SFDP = fmt.Sprintf("%d.%d", s.MajorRev, s.MinorRev)
	}

	return di, nil
}
