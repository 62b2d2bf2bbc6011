package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genovault/genovault/internal/classify"
	"github.com/genovault/genovault/internal/ingest"
	"github.com/genovault/genovault/internal/record"
)

func newPatientCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patient records",
	}
	cmd.AddCommand(newPatientAddCmd(verbose))
	cmd.AddCommand(newPatientGetCmd(verbose))
	cmd.AddCommand(newPatientRmCmd(verbose))
	return cmd
}

// patientService opens the store and builds an ingest service. Patient
// operations never classify, so a missing catalog is not an error here.
func patientService(verbose bool) (*ingest.Service, func(), error) {
	logger := newLogger(verbose)
	s, err := openStore(logger)
	if err != nil {
		return nil, nil, err
	}
	classifier, err := loadClassifier(logger)
	if err != nil {
		classifier = classify.New(emptyCatalog())
	}
	svc := ingest.New(s, classifier)
	svc.SetLogger(logger)
	cleanup := func() {
		_ = s.Close()
		_ = logger.Sync()
	}
	return svc, cleanup, nil
}

func newPatientAddCmd(verbose *bool) *cobra.Command {
	var age int
	var sex, stage string

	cmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Add or update a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var agePtr *int
			if cmd.Flags().Changed("age") {
				agePtr = &age
			}
			p, err := record.NewPatient(args[0], agePtr, record.Sex(sex), record.Stage(stage))
			if err != nil {
				return err
			}

			svc, cleanup, err := patientService(*verbose)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.AddPatient(context.Background(), *p); err != nil {
				return err
			}
			fmt.Printf("patient %s saved\n", p.ID)
			return nil
		},
	}

	cmd.Flags().IntVar(&age, "age", 0, "patient age")
	cmd.Flags().StringVar(&sex, "sex", "", "patient sex: female, male, other or unknown")
	cmd.Flags().StringVar(&stage, "stage", "", "clinical stage: 0, I, II, III, IV or unknown")
	return cmd
}

func newPatientGetCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "get <patient-id>",
		Short: "Show a patient and its gene records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := patientService(*verbose)
			if err != nil {
				return err
			}
			defer cleanup()

			p, genes, err := svc.GetPatient(context.Background(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Patient: %s\n", p.ID)
			if p.Age != nil {
				fmt.Printf("Age: %d\n", *p.Age)
			}
			fmt.Printf("Sex: %s\nStage: %s\n", p.Sex, p.Stage)
			fmt.Printf("Gene records (%d):\n", len(genes))
			for _, g := range genes {
				fmt.Printf("  %s\texpression=%g", g.GeneID, g.Expression)
				if g.Sequence != "" {
					fmt.Printf("\tsequence=%dbp", len(g.Sequence))
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newPatientRmCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <patient-id>",
		Short: "Delete a patient and, cascading, its gene and mutation records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := patientService(*verbose)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeletePatient(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("patient %s deleted\n", args[0])
			return nil
		},
	}
}
