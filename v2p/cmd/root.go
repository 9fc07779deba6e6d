// Package cmd provides the command-line interface for v2p.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/v2p/config"
	"github.com/sarchlab/v2p/logging"
	"github.com/sarchlab/v2p/mem/vm/addresstranslator"
	"github.com/sarchlab/v2p/mem/vm/pagemap"
)

var (
	cfg    config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "v2p",
	Short: "v2p maps virtual addresses to physical addresses and DRAM locations.",
	Long: `v2p reads the Linux pagemap of a process to translate virtual ` +
		`addresses into physical addresses, and decomposes physical ` +
		`addresses into DRAM row, bank, and column. Reading frame numbers ` +
		`requires CAP_SYS_ADMIN.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringSlice("env-file", []string{".env"},
		"Files to load environment settings from, if they exist.")
	flags.String("log-level", "", "Log level (debug, info, warn, error).")
	flags.Bool("log-dev", false, "Log in a human-readable format.")
	flags.Int("pid", 0, "Process to inspect. 0 means v2p itself.")
	flags.String("pagemap", "", "Pagemap file to read instead of the "+
		"process's.")
	flags.String("page-size", "", "Page size. Defaults to the system's.")

	flags.Uint("column-shift", 0, "Lowest physical address bit of the column.")
	flags.Uint("column-width", 0, "Number of column bits.")
	flags.Uint("bank-shift", 0, "Lowest physical address bit of the bank.")
	flags.Uint("bank-width", 0, "Number of bank bits.")
	flags.Uint("row-shift", 0, "Lowest physical address bit of the row.")
	flags.Uint("row-width", 0, "Number of row bits.")
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func setup(cmd *cobra.Command, _ []string) error {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")

	loaded, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	cfg = loaded

	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogDev)

	return err
}

// applyFlags overrides configuration values with the flags that were set.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()

	stringFlags := map[string]*string{
		"log-level": &c.LogLevel,
		"pagemap":   &c.Pagemap,
		"policy":    &c.Policy,
		"record-db": &c.RecordDB,
	}
	for name, dst := range stringFlags {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	uintFlags := map[string]*uint{
		"column-shift": &c.ColumnShift,
		"column-width": &c.ColumnWidth,
		"bank-shift":   &c.BankShift,
		"bank-width":   &c.BankWidth,
		"row-shift":    &c.RowShift,
		"row-width":    &c.RowWidth,
	}
	for name, dst := range uintFlags {
		if flags.Changed(name) {
			*dst, _ = flags.GetUint(name)
		}
	}

	sizeFlags := map[string]*config.Size{
		"page-size": &c.PageSize,
		"length":    &c.Length,
		"step":      &c.Step,
	}
	for name, dst := range sizeFlags {
		if !flags.Changed(name) {
			continue
		}

		value, _ := flags.GetString(name)
		if err := dst.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}

	if flags.Changed("pid") {
		c.PID, _ = flags.GetInt("pid")
	}

	if flags.Changed("log-dev") {
		c.LogDev, _ = flags.GetBool("log-dev")
	}

	return nil
}

func pageSize() (uint64, error) {
	if cfg.PageSize != 0 {
		return uint64(cfg.PageSize), nil
	}

	return pagemap.SystemPageSize()
}

func openTranslator() (*addresstranslator.Translator, error) {
	ps, err := pageSize()
	if err != nil {
		return nil, err
	}

	logger.Debug("opening pagemap",
		zap.Int("pid", cfg.PID),
		zap.String("pagemap", cfg.Pagemap),
		zap.Uint64("page_size", ps))

	return addresstranslator.MakeBuilder().
		WithPageSize(ps).
		WithPID(cfg.PID).
		WithPagemapPath(cfg.Pagemap).
		Build()
}
