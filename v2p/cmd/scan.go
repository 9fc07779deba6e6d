package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/v2p/datarecording"
	"github.com/sarchlab/v2p/mem/vm/pagemap"
	"github.com/sarchlab/v2p/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a range of memory and report the DRAM location of each step.",
	Long: `Without --pid, scan allocates a buffer of --length bytes, touches ` +
		`every page, and reports where each --step of it lives. With ` +
		`--pid, scan walks the readable regions of that process instead.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("length", "", "Size of the buffer to scan.")
	scanCmd.Flags().String("step", "", "Distance between scanned addresses.")
	scanCmd.Flags().String("policy", "",
		"When to stop: continue, stop-on-error, or stop-on-non-resident.")
	scanCmd.Flags().String("record-db", "",
		"Record results into this SQLite database (without extension).")
	scanCmd.Flags().Bool("all-regions", false,
		"With --pid, also scan regions without read permission.")
	scanCmd.Flags().BoolP("quiet", "q", false, "Only print the summary.")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	translator, err := openTranslator()
	if err != nil {
		return err
	}
	defer translator.Close()

	scanner, finish, err := buildScanner(cmd, translator)
	if err != nil {
		return err
	}

	summary, err := runScanner(ctx, cmd, scanner, translator.PageSize())

	return errors.Join(err, finish(summary))
}

func buildScanner(
	cmd *cobra.Command,
	translator scan.Translator,
) (*scan.Scanner, func(scan.Summary) error, error) {
	policy, err := cfg.ScanPolicy()
	if err != nil {
		return nil, nil, err
	}

	hooks := []scan.Hook{scan.NewLogHook(logger)}

	var printer *scan.PrintHook

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		printer = scan.NewPrintHook(cmd.OutOrStdout())
		hooks = append(hooks, printer)
	}

	var (
		recorder   datarecording.DataRecorder
		recordHook *scan.RecordHook
	)

	if cfg.RecordDB != "" {
		recorder, err = datarecording.New(cfg.RecordDB)
		if err != nil {
			return nil, nil, err
		}

		recordHook, err = scan.NewRecordHook(recorder)
		if err != nil {
			return nil, nil, errors.Join(err, recorder.Close())
		}

		hooks = append(hooks, recordHook)
	}

	scanner := scan.MakeBuilder().
		WithTranslator(translator).
		WithMapper(cfg.Layout()).
		WithPolicy(policy).
		WithStep(uint64(cfg.Step)).
		WithLogger(logger).
		WithAdditionalHooks(hooks...).
		Build()

	finish := func(summary scan.Summary) error {
		var errs []error

		if printer != nil {
			errs = append(errs, printer.Err())
		} else {
			fmt.Fprintf(cmd.OutOrStdout(),
				"Scanned %d addresses: %d resident, %d not resident, "+
					"%d failed\n",
				summary.Total(), summary.Resident, summary.NotResident,
				summary.Failed)
		}

		if recordHook != nil {
			errs = append(errs, recordHook.Err(), recorder.Close())
			logger.Info("recorded scan",
				zap.String("session", scanner.Session()),
				zap.String("db", cfg.RecordDB+".sqlite3"))
		}

		return errors.Join(errs...)
	}

	return scanner, finish, nil
}

func runScanner(
	ctx context.Context,
	cmd *cobra.Command,
	scanner *scan.Scanner,
	pageSize uint64,
) (scan.Summary, error) {
	if cfg.PID > 0 {
		return scanProcess(ctx, cmd, scanner)
	}

	buf, err := scan.AllocateBuffer(int(cfg.Length), pageSize)
	if err != nil {
		return scan.Summary{}, err
	}
	defer buf.Close()

	logger.Info("scanning buffer",
		zap.String("start", fmt.Sprintf("0x%x", buf.Addr())),
		zap.Stringer("length", cfg.Length),
		zap.Stringer("step", cfg.Step))

	return scanner.Scan(ctx, buf.Addr(), buf.Len())
}

func scanProcess(
	ctx context.Context,
	cmd *cobra.Command,
	scanner *scan.Scanner,
) (scan.Summary, error) {
	if err := checkProcess(cfg.PID); err != nil {
		return scan.Summary{}, err
	}

	regions, err := pagemap.ReadMaps(cfg.PID)
	if err != nil {
		return scan.Summary{}, err
	}

	all, _ := cmd.Flags().GetBool("all-regions")
	if !all {
		regions = readableRegions(regions)
	}

	logger.Info("scanning process regions", zap.Int("regions", len(regions)))

	return scanner.ScanRegions(ctx, regions)
}

func readableRegions(regions []pagemap.Region) []pagemap.Region {
	var readable []pagemap.Region

	for _, r := range regions {
		if r.Readable() {
			readable = append(readable, r)
		}
	}

	return readable
}
