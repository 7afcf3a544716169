package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AxiomAlive/imba-automl/internal/bench"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored benchmark runs",
		RunE:  listRuns,
	}
	cmd.Flags().String("dataset", "", "only show runs for this dataset path")
	return cmd
}

func listRuns(cmd *cobra.Command, _ []string) error {
	datasetFilter, _ := cmd.Flags().GetString("dataset")

	store, err := bench.NewStore(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListRuns(cmd.Context(), datasetFilter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tstarted\tdataset\tmetric\tbest family\tcv score\tholdout\telapsed")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.4f\t%.4f\t%.1fs\n",
			rec.ID, rec.StartedAt.Format("2006-01-02 15:04"), rec.Dataset,
			rec.Metric, rec.BestFamily, rec.BestScore, rec.HoldoutScore, rec.ElapsedSec)
	}
	return tw.Flush()
}
