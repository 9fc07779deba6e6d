package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/v2p/mem/vm/pagemap"
)

var decodeCmd = &cobra.Command{
	Use:   "decode VALUE...",
	Short: "Decode physical addresses or raw pagemap entries.",
	Long: `decode splits each physical address into DRAM row, bank, and ` +
		`column using the configured layout. With --entry, each value is ` +
		`read as a raw 64-bit pagemap entry instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Bool("entry", false,
		"Decode raw pagemap entries instead of physical addresses.")
}

func runDecode(cmd *cobra.Command, args []string) error {
	values, err := parseAddresses(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if entries, _ := cmd.Flags().GetBool("entry"); entries {
		for _, raw := range values {
			fmt.Fprintf(out, "0x%016x: %s\n", raw, describeEntry(raw))
		}

		return nil
	}

	l := cfg.Layout()
	logger.Debug("decoding with layout", zap.Stringer("layout", l))

	for _, addr := range values {
		fmt.Fprintf(out, "Address 0x%x: %s\n", addr, l.Map(addr))
	}

	return nil
}

func describeEntry(raw uint64) string {
	e := pagemap.Decode(raw)
	desc := e.String()

	for _, f := range []struct {
		set  bool
		name string
	}{
		{e.FilePage, "file-page"},
		{e.Exclusive, "exclusive"},
		{e.SoftDirty, "soft-dirty"},
	} {
		if f.set {
			desc += " " + f.name
		}
	}

	return desc
}
