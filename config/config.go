// Package config loads v2p settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/sarchlab/v2p/mem/dram/addressmapping"
	"github.com/sarchlab/v2p/mem/vm/pagemap"
	"github.com/sarchlab/v2p/scan"
)

// Size is a byte count that parses human units such as "4KiB" or "1GB".
type Size uint64

// UnmarshalText parses a human-readable size.
func (s *Size) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return fmt.Errorf("parse size %q: %w", text, err)
	}

	*s = Size(n)

	return nil
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// Config holds every setting of v2p. Each field is read from the environment
// variable named in its env tag.
type Config struct {
	// Pagemap overrides the pagemap file. Empty means /proc/<pid>/pagemap.
	Pagemap string `env:"V2P_PAGEMAP"`
	PID     int    `env:"V2P_PID" envDefault:"0"`

	// PageSize of zero means the system page size.
	PageSize Size   `env:"V2P_PAGE_SIZE" envDefault:"0"`
	Length   Size   `env:"V2P_LENGTH"    envDefault:"1GiB"`
	Step     Size   `env:"V2P_STEP"      envDefault:"4KiB"`
	Policy   string `env:"V2P_POLICY"    envDefault:"stop-on-error"`

	ColumnShift uint `env:"V2P_COLUMN_SHIFT" envDefault:"3"`
	ColumnWidth uint `env:"V2P_COLUMN_WIDTH" envDefault:"9"`
	BankShift   uint `env:"V2P_BANK_SHIFT"   envDefault:"12"`
	BankWidth   uint `env:"V2P_BANK_WIDTH"   envDefault:"3"`
	RowShift    uint `env:"V2P_ROW_SHIFT"    envDefault:"15"`
	RowWidth    uint `env:"V2P_ROW_WIDTH"    envDefault:"17"`

	// RecordDB, when set, names the SQLite file (without extension) that
	// scans are recorded to.
	RecordDB string `env:"V2P_RECORD_DB"`

	LogLevel string `env:"V2P_LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"V2P_LOG_DEV"   envDefault:"false"`
}

// Load reads the given .env files, skipping missing ones, and parses the
// environment. Variables already set in the environment win over the files.
// The result is not validated, so callers can apply overrides first and then
// call Validate.
func Load(files ...string) (Config, error) {
	for _, file := range files {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// Layout returns the DRAM layout described by the shift and width settings.
func (c Config) Layout() addressmapping.Layout {
	return addressmapping.Layout{
		Column: addressmapping.Field{Shift: c.ColumnShift, Width: c.ColumnWidth},
		Bank:   addressmapping.Field{Shift: c.BankShift, Width: c.BankWidth},
		Row:    addressmapping.Field{Shift: c.RowShift, Width: c.RowWidth},
	}
}

// ScanPolicy parses Policy.
func (c Config) ScanPolicy() (scan.Policy, error) {
	return scan.ParsePolicy(c.Policy)
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.ScanPolicy(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Layout().Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Step == 0 {
		errs = append(errs, errors.New("step must be positive"))
	}

	if c.PageSize != 0 && !pagemap.IsValidPageSize(uint64(c.PageSize)) {
		errs = append(errs, fmt.Errorf("page size %d is not a power of two",
			uint64(c.PageSize)))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
