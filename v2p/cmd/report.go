package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/v2p/datarecording"
	"github.com/sarchlab/v2p/scan"
)

var reportCmd = &cobra.Command{
	Use:   "report DATABASE",
	Short: "Print the translations recorded by scan --record-db.",
	Long: `report prints the rows of a database written by scan ` +
		`--record-db. DATABASE may be given with or without the .sqlite3 ` +
		`extension, just as it was passed to --record-db.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("where", "",
		"SQL condition on the recorded columns, e.g. \"DramBank = 3\".")
	reportCmd.Flags().String("order-by", "Session, Seq", "SQL ordering.")
	reportCmd.Flags().Int("limit", 0, "Maximum number of rows. 0 means all.")
	reportCmd.Flags().Int("offset", 0, "Rows to skip.")
}

func runReport(cmd *cobra.Command, args []string) error {
	reader, err := datarecording.NewReader(databaseFile(args[0]))
	if err != nil {
		return err
	}
	defer reader.Close()

	params := datarecording.QueryParams{}
	params.Where, _ = cmd.Flags().GetString("where")
	params.OrderBy, _ = cmd.Flags().GetString("order-by")
	params.Limit, _ = cmd.Flags().GetInt("limit")
	params.Offset, _ = cmd.Flags().GetInt("offset")

	reader.MapTable(scan.TranslationTable, scan.TranslationRow{})

	rows, total, err := reader.Query(cmd.Context(), scan.TranslationTable,
		params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSEQ\tVADDR\tOUTCOME\tPADDR\tROW\tBANK\tCOLUMN\tERROR")

	for _, r := range rows {
		row := r.(*scan.TranslationRow)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			row.Session, row.Seq, row.VAddr, row.Outcome, row.PAddr,
			row.DramRow, row.DramBank, row.DramColumn, row.Error)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows\n", len(rows), total)

	return err
}

// databaseFile adds the extension datarecording.New gives recorded files
// when name has none.
func databaseFile(name string) string {
	if filepath.Ext(name) == "" {
		return name + ".sqlite3"
	}

	return name
}
