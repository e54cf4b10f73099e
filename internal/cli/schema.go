package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type SchemaCmd struct{}

func NewSchemaCmd() *SchemaCmd {
	return &SchemaCmd{}
}

func (c *SchemaCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema description given to the language model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			columnsOnly, err := cmd.Flags().GetBool("columns")
			if err != nil {
				return fmt.Errorf("failed to get columns flag: %w", err)
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if columnsOnly {
				columns, err := s.app.DB.Columns(s.ctx)
				if err != nil {
					return err
				}
				renderColumns(cmd.OutOrStdout(), columns)
				return nil
			}

			desc, err := s.app.Schema.Describe(s.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
	cmd.Flags().Bool("columns", false, "print only the live column listing as a table")
	return cmd
}
