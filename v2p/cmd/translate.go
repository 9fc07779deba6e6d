package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/v2p/scan"
)

var translateCmd = &cobra.Command{
	Use:   "translate ADDRESS...",
	Short: "Translate virtual addresses of a process.",
	Long: `translate looks up each virtual address in the pagemap of --pid ` +
		`and prints its physical address and DRAM location. Addresses may ` +
		`be given in decimal, or in hex with a 0x prefix.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	addrs, err := parseAddresses(args)
	if err != nil {
		return err
	}

	translator, err := openTranslator()
	if err != nil {
		return err
	}
	defer translator.Close()

	printer := scan.NewPrintHook(cmd.OutOrStdout())
	scanner := scan.MakeBuilder().
		WithTranslator(translator).
		WithMapper(cfg.Layout()).
		WithPolicy(scan.PolicyContinue).
		WithLogger(logger).
		WithAdditionalHooks(scan.NewLogHook(logger), printer).
		Build()

	summary, err := scanner.ScanAddresses(cmd.Context(), addrs)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d translations failed",
			summary.Failed, summary.Total())
	}

	return printer.Err()
}

func parseAddresses(args []string) ([]uint64, error) {
	addrs := make([]uint64, 0, len(args))

	for _, arg := range args {
		addr, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", arg, err)
		}

		addrs = append(addrs, addr)
	}

	return addrs, nil
}
