package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/genovault/genovault/internal/ingest"
	"github.com/genovault/genovault/internal/validate"
)

func newImportCmd(verbose *bool) *cobra.Command {
	var replace bool
	var stopOnError bool

	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import gene expression rows from a CSV file",
		Long: `Import rows from a CSV file with a header line. Recognized columns:
patient_id, age, sex, stage, gene_id, expression, sequence.
Use '-' to read from stdin.`,
		Example: `  genovault import cohort.csv
  genovault import --replace cohort.csv
  cat cohort.csv | genovault import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*verbose)
			defer func() { _ = logger.Sync() }()

			rows, err := readCSVRows(args[0])
			if err != nil {
				return err
			}

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

			report, err := svc.Import(context.Background(), rows, ingest.ImportOptions{
				Replace:     replace,
				StopOnError: stopOnError,
			})
			if err != nil {
				return err
			}

			for _, o := range report.Outcomes {
				if o.Err != nil {
					fmt.Fprintf(os.Stderr, "row %d: %v\n", o.Line, o.Err)
					continue
				}
				fmt.Printf("row %d: %s/%s -> %s\n", o.Line, o.PatientID, o.GeneID, o.Classification)
			}
			fmt.Printf("imported %d, failed %d\n", report.Imported, report.Failed)
			if stopOnError && report.Failed > 0 {
				return fmt.Errorf("import stopped at row %d", report.Outcomes[len(report.Outcomes)-1].Line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "supersede existing (patient, gene) records")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort at the first failed row")
	return cmd
}

// readCSVRows parses a CSV file into raw rows keyed by the header names.
// Unrecognized columns are carried through untouched; the validation engine
// ignores them.
func readCSVRows(path string) ([]validate.Row, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []validate.Row
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make(validate.Row, len(header))
		for i, v := range fields {
			if i >= len(header) {
				break
			}
			if v = strings.TrimSpace(v); v != "" {
				row[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
