package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genovault/genovault/internal/catalog"
	"github.com/genovault/genovault/internal/ingest"
	"github.com/genovault/genovault/internal/record"
)

// emptyCatalog stands in when no reference catalog is configured: every gene
// classifies as unknown.
func emptyCatalog() *catalog.Catalog {
	return catalog.New("none", nil)
}

func newGeneCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gene",
		Short: "Manage gene records",
	}
	cmd.AddCommand(newGeneAddCmd(verbose))
	return cmd
}

func newGeneAddCmd(verbose *bool) *cobra.Command {
	var expression float64
	var sequence string
	var replace bool

	cmd := &cobra.Command{
		Use:   "add <patient-id> <gene-id>",
		Short: "Add a gene record and derive its mutation record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := record.NewGeneRecord(args[0], args[1], expression, sequence)
			if err != nil {
				return err
			}

			logger := newLogger(*verbose)
			defer func() { _ = logger.Sync() }()

			s, err := openStore(logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			classifier, err := loadClassifier(logger)
			if err != nil {
				return err
			}

			svc := ingest.New(s, classifier)
			svc.SetLogger(logger)

			stored, mut, err := svc.AddGene(context.Background(), *g, replace)
			if err != nil {
				return err
			}
			fmt.Printf("gene record %s stored: %s/%s -> %s", stored.ID, stored.PatientID, stored.GeneID, mut.Classification)
			if mut.Variant != "" {
				fmt.Printf(" (%s %s)", mut.Type, mut.Variant)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Float64Var(&expression, "expression", 0, "expression value (required)")
	cmd.Flags().StringVar(&sequence, "sequence", "", "raw nucleotide sequence")
	cmd.Flags().BoolVar(&replace, "replace", false, "supersede an existing record for this (patient, gene) pair")
	_ = cmd.MarkFlagRequired("expression")
	return cmd
}
