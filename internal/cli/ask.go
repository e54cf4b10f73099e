package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type AskCmd struct{}

func NewAskCmd() *AskCmd {
	return &AskCmd{}
}

func (c *AskCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question about the stored activities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showRows, err := cmd.Flags().GetBool("rows")
			if err != nil {
				return fmt.Errorf("failed to get rows flag: %w", err)
			}
			showQuery, err := cmd.Flags().GetBool("query")
			if err != nil {
				return fmt.Errorf("failed to get query flag: %w", err)
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reply, err := s.app.Chat.Retrieve(s.ctx, strings.Join(args, " "), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reply.Text)
			if showQuery && reply.ExecutedQuery != "" {
				fmt.Fprintf(out, "\nQuery (%s confidence):\n%s\n", reply.QueryConfidence, reply.ExecutedQuery)
			}
			if showRows && len(reply.Columns) > 0 {
				fmt.Fprintln(out)
				renderRows(out, reply.Columns, reply.Rows)
			}
			return nil
		},
	}
	cmd.Flags().Bool("rows", false, "print the rows returned by the executed query")
	cmd.Flags().Bool("query", false, "print the executed query")
	return cmd
}
