package commands

import (
	"fmt"

	"github.com/okian/elovote/internal/votesim"
	"github.com/spf13/cobra"
)

func simCmd(_ *rootOptions) *cobra.Command {
	cfg := votesim.Config{}
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run concurrent simulated voters against a service and verify no update is lost",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := votesim.Run(cmd.Context(), cfg)
			if stats != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "items:      %d\n", stats.Items)
				fmt.Fprintf(out, "attempted:  %d\n", stats.VotesAttempted)
				fmt.Fprintf(out, "committed:  %d (retried %d)\n", stats.VotesCommitted, stats.VotesRetried)
				fmt.Fprintf(out, "conflicts:  %d\n", stats.Conflicts)
				fmt.Fprintf(out, "failures:   %d\n", stats.Failures)
				fmt.Fprintf(out, "drift:      %+.1f\n", stats.Drift())
				fmt.Fprintf(out, "duration:   %s\n", stats.Duration)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", votesim.DefaultBaseURL, "base URL of the service")
	cmd.Flags().IntVar(&cfg.Voters, "voters", votesim.DefaultVoters, "concurrent sessions")
	cmd.Flags().IntVar(&cfg.VotesPerVoter, "votes", votesim.DefaultVotesPerVoter, "votes per session")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", votesim.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().IntVar(&cfg.BoardLimit, "board-limit", votesim.DefaultBoardLimit, "leaderboard rows read for verification")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "random seed for slot choices (0 picks one)")
	return cmd
}
