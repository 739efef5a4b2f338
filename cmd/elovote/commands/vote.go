package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	elo "github.com/okian/elovote/internal/domain/elo"
	model "github.com/okian/elovote/internal/domain/model"
	pairing "github.com/okian/elovote/internal/domain/pairing"
	"github.com/okian/elovote/internal/domain/session"
	"github.com/okian/elovote/pkg/logger"
	"github.com/spf13/cobra"
)

func voteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vote",
		Short: "Vote interactively: type 1 or 2 to pick, q to quit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sess := session.New(store,
				session.WithLogger(logger.Named("session")),
				session.WithSelector(pairing.NewSelector(pairing.WithRecentWindow(opts.cfg.RecentPairWindow))),
				session.WithUpdater(elo.NewUpdater(elo.WithKFactor(opts.cfg.KFactor))),
				session.WithRetries(opts.cfg.VoteRetries),
				session.WithStoreTimeout(opts.storeTimeout()),
			)
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			return voteLoop(cmd, sess)
		},
	}
}

func voteLoop(cmd *cobra.Command, sess *session.Session) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	for {
		pair, ok := sess.Pair()
		if !ok {
			fmt.Fprintln(out, "not enough items to vote on; run `elovote seed` first")
			return nil
		}
		printPair(out, pair)

		if !in.Scan() {
			return in.Err()
		}
		var slot int
		switch strings.TrimSpace(strings.ToLower(in.Text())) {
		case "1":
			slot = 0
		case "2":
			slot = 1
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintln(out, "type 1 or 2, or q to quit")
			continue
		}

		res, err := sess.Vote(cmd.Context(), slot)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s %.0f (%+.1f)  %s %.0f (%+.1f)\n\n",
				res.Winner.Name, res.Winner.Rating, res.WinnerDelta,
				res.Loser.Name, res.Loser.Rating, res.LoserDelta)
		case errors.Is(err, model.ErrConflict):
			fmt.Fprintln(out, "someone else voted on this pair first; showing fresh ratings")
		default:
			return err
		}
	}
}

func printPair(w io.Writer, c model.Comparison) {
	fmt.Fprintf(w, "1) %s (%.0f)\n2) %s (%.0f)\n> ", c.A.Name, c.A.Rating, c.B.Name, c.B.Rating)
}
