package main

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/genovault/genovault/internal/query"
	"github.com/genovault/genovault/internal/record"
)

func newQueryCmd(verbose *bool) *cobra.Command {
	var (
		sex            string
		stage          string
		gene           string
		classification string
		ageMin, ageMax int
		exprMin        float64
		exprMax        float64
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List gene records matching the given filters",
		Long:  "Filters combine with AND. Rows are ordered by patient then gene identifier.",
		Example: `  genovault query --gene TP53
  genovault query --stage IV --classification pathogenic
  genovault query --expression-min 0 --expression-max 1.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filters []query.Filter
			if sex != "" {
				filters = append(filters, query.BySex(record.Sex(sex)))
			}
			if stage != "" {
				filters = append(filters, query.ByStage(record.Stage(stage)))
			}
			if gene != "" {
				filters = append(filters, query.ByGene(gene))
			}
			if classification != "" {
				filters = append(filters, query.ByClassification(record.Classification(classification)))
			}
			if cmd.Flags().Changed("age-min") || cmd.Flags().Changed("age-max") {
				filters = append(filters, query.ByAgeRange(ageMin, ageMax))
			}
			if cmd.Flags().Changed("expression-min") || cmd.Flags().Changed("expression-max") {
				filters = append(filters, query.ByExpressionRange(exprMin, exprMax))
			}

			logger := newLogger(*verbose)
			defer func() { _ = logger.Sync() }()

			s, err := openStore(logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			rows, err := query.New(s).Rows(context.Background(), query.And(filters...))
			if err != nil {
				return err
			}

			fmt.Println("patient\tgene\texpression\ttype\tclassification")
			for _, r := range rows {
				typ, class := "-", "-"
				if r.Mutation != nil {
					typ = string(r.Mutation.Type)
					class = string(r.Mutation.Classification)
				}
				fmt.Printf("%s\t%s\t%g\t%s\t%s\n", r.Patient.ID, r.Gene.GeneID, r.Gene.Expression, typ, class)
			}
			fmt.Printf("%d row(s)\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&sex, "sex", "", "filter by patient sex")
	cmd.Flags().StringVar(&stage, "stage", "", "filter by clinical stage")
	cmd.Flags().StringVar(&gene, "gene", "", "filter by gene identifier")
	cmd.Flags().StringVar(&classification, "classification", "", "filter by mutation classification")
	cmd.Flags().IntVar(&ageMin, "age-min", 0, "minimum patient age")
	cmd.Flags().IntVar(&ageMax, "age-max", record.MaxPatientAge, "maximum patient age")
	cmd.Flags().Float64Var(&exprMin, "expression-min", math.Inf(-1), "minimum expression value")
	cmd.Flags().Float64Var(&exprMax, "expression-max", math.Inf(1), "maximum expression value")
	return cmd
}
