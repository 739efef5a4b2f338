package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	model "github.com/okian/elovote/internal/domain/model"
	"github.com/spf13/cobra"
)

func leaderboardCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print items ranked by rating",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.storeTimeout())
			defer cancel()
			items, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("list items: %w", err)
			}
			board := model.NewSnapshot(items).Leaderboard()
			if limit > 0 && limit < len(board) {
				board = board[:limit]
			}
			return printBoard(cmd.OutOrStdout(), board)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "rows to print (0 prints all)")
	return cmd
}

func printBoard(w io.Writer, board []model.Standing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tRATING")
	for _, st := range board {
		fmt.Fprintf(tw, "%d\t%s\t%.0f\n", st.Rank, st.Name, st.Rating)
	}
	return tw.Flush()
}
