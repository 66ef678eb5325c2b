package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shelfhub/shelfclient"
)

func addEditors(topLevel *cobra.Command, r *root) {
	cmd := &cobra.Command{
		Use:   "editors",
		Short: "Manage who may edit a shelf",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list <shelf>",
		Short: "List the editors of a shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				editors, err := c.ListEditors(ctx, args[0])
				if err != nil {
					return err
				}
				printEditors(cmd.OutOrStdout(), args[0], editors)
				return nil
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <shelf> <identity>",
		Short: "Grant edit access on a shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				if err := c.AddEditor(ctx, args[0], args[1]); err != nil {
					return err
				}
				editors, _ := c.Editors(args[0])
				printEditors(cmd.OutOrStdout(), args[0], editors)
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:     "remove <shelf> <identity>",
		Aliases: []string{"rm"},
		Short:   "Revoke edit access on a shelf",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				if err := c.RemoveEditor(ctx, args[0], args[1]); err != nil {
					return err
				}
				editors, _ := c.Editors(args[0])
				printEditors(cmd.OutOrStdout(), args[0], editors)
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, remove)
	topLevel.AddCommand(cmd)
}
