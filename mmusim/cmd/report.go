package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/mmusim/datarecording"
	"github.com/sarchlab/mmusim/mem/vm/mmu"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report <recording.sqlite3>",
	Short: "Summarize the translations stored in a recording.",
	Long: "`report <recording.sqlite3>` prints the translation counts of a " +
		"recording made with --record. With --list, it also lists the " +
		"recorded translations.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustCreateLogger(cmd)
		defer func() { _ = logger.Sync() }()

		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			logger.Error("cannot open the recording", zap.Error(err))
			atexit.Exit(exitFatal)
		}
		defer reader.Close()

		reader.MapTable(mmu.TranslationTable, mmu.TranslationEntry{})

		ctx := context.Background()
		err = printRecordedStats(ctx, os.Stdout, reader)
		if err != nil {
			logger.Error("cannot read the recording", zap.Error(err))
			atexit.Exit(exitFatal)
		}

		list, _ := cmd.Flags().GetInt("list")
		if list <= 0 {
			return
		}

		err = printRecordedTranslations(ctx, os.Stdout, reader, list)
		if err != nil {
			logger.Error("cannot read the recording", zap.Error(err))
			atexit.Exit(exitFatal)
		}
	},
}

func init() {
	reportCmd.Flags().Int("list", 0, "List the first N recorded translations")
	rootCmd.AddCommand(reportCmd)
}

func printRecordedStats(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
) error {
	counts := []struct {
		label string
		where string
	}{
		{"Translations", ""},
		{"TLB hits", "TLBHit = 1"},
		{"TLB misses", "TLBHit = 0"},
		{"Page faults", "PageFault = 1"},
		{"Second-level tables allocated", "TableAllocated = 1"},
		{"Invalid physical addresses", "InBounds = 0"},
	}

	for _, c := range counts {
		n, err := reader.Count(ctx, mmu.TranslationTable, c.where)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s: %d\n", c.label, n)
	}

	return nil
}

func printRecordedTranslations(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	limit int,
) error {
	rows, _, err := reader.Query(ctx, mmu.TranslationTable,
		datarecording.QueryParams{
			OrderBy: "rowid",
			Limit:   limit,
		})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVADDR\tWIDTH\tPAGE\tTLB\tFAULT\tFRAME\tVALUE")

	for _, r := range rows {
		e := r.(*mmu.TranslationEntry)

		value := fmt.Sprint(e.Value)
		if !e.InBounds {
			value = "invalid"
		}

		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%t\t%t\t%d\t%s\n",
			e.ID, e.VAddr, e.Width, e.VPN, e.TLBHit, e.PageFault,
			e.Frame, value)
	}

	return tw.Flush()
}
