package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genovault/genovault/internal/ingest"
)

func newReclassifyCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify",
		Short: "Re-derive every mutation record against the configured catalog",
		Long: `Re-runs classification for all gene records in one transaction. Use
after swapping in a new reference catalog; the superseded mutation
records are replaced, never edited in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			n, err := svc.Reclassify(context.Background(), classifier)
			if err != nil {
				return err
			}
			fmt.Printf("reclassified %d gene record(s) against catalog %s\n", n, classifier.CatalogVersion())
			return nil
		},
	}
}
