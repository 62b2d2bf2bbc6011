package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genovault/genovault/internal/query"
)

func newReportCmd(verbose *bool) *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the mutation report",
		Long: `Aggregates the whole store: mutation counts per classification, the
most frequently mutated genes and per-gene expression statistics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*verbose)
			defer func() { _ = logger.Sync() }()

			s, err := openStore(logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			rep, err := query.New(s).Run(context.Background(), query.Request{TopN: topN})
			if err != nil {
				return err
			}

			fmt.Println("Mutation Report")
			fmt.Println("\nClassification counts:")
			for _, e := range rep[query.AggClassificationCounts] {
				fmt.Printf("  %-20s %d\n", e.Key, int(e.Value))
			}

			fmt.Println("\nTop mutated genes:")
			for _, e := range rep[query.AggTopMutated] {
				fmt.Printf("  %-12s %d\n", e.Key, int(e.Value))
			}

			fmt.Println("\nExpression by gene (mean / variance / n):")
			for _, e := range rep[query.AggExpressionStats] {
				fmt.Printf("  %-12s %.3f / %.3f / %d\n", e.Key, e.Value, e.Extra["variance"], int(e.Extra["n"]))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topN, "top", query.DefaultTopN, "number of genes in the top-mutated ranking")
	return cmd
}
