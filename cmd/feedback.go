package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <response-id>",
	Short: "Vote on an analysis response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		up, _ := cmd.Flags().GetBool("up")
		down, _ := cmd.Flags().GetBool("down")
		if up == down {
			return eris.New("pass exactly one of --up or --down")
		}

		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		if _, err := env.API.Feedback.Submit(ctx, model.FeedbackRequest{ResponseID: args[0], IsPositive: up}); err != nil {
			return eris.New(propertyapi.Message(err, "could not submit feedback"))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Thanks for the feedback.")
		return nil
	},
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats <response-id>",
	Short: "Show vote totals for a response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, feedbackCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		stats, err := env.API.Feedback.Stats(ctx, args[0])
		if err != nil {
			return eris.New(propertyapi.Message(err, "could not load feedback"))
		}
		format, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), format, stats, func(w io.Writer) error {
			return printFeedbackStats(w, stats)
		})
	},
}

func printFeedbackStats(w io.Writer, s *model.FeedbackStats) error {
	fmt.Fprintf(w, "Votes: %d (%d up, %d down)\n", s.TotalFeedback, s.PositiveFeedback, s.NegativeFeedback)
	switch {
	case s.UserFeedback == nil:
		fmt.Fprintln(w, "You have not voted.")
	case *s.UserFeedback:
		fmt.Fprintln(w, "Your vote: up")
	default:
		fmt.Fprintln(w, "Your vote: down")
	}
	return nil
}

func init() {
	feedbackCmd.Flags().Bool("up", false, "the response was helpful")
	feedbackCmd.Flags().Bool("down", false, "the response was not helpful")
	feedbackStatsCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")

	feedbackCmd.AddCommand(feedbackStatsCmd)
	rootCmd.AddCommand(feedbackCmd)
}
