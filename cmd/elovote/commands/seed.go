package commands

import (
	"context"
	"fmt"

	"github.com/okian/elovote/internal/seed"
	"github.com/spf13/cobra"
)

func seedCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert items at the initial rating; existing names are kept",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := seed.Players()
			if file != "" {
				var err error
				if names, err = seed.LoadFile(file); err != nil {
					return err
				}
			}

			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.storeTimeout())
			defer cancel()
			added, err := store.Seed(ctx, names, opts.cfg.InitialRating)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d items into %s\n", len(added), len(names), store.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "newline separated names (default: built-in roster)")
	return cmd
}
