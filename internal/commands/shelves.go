package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfhub/shelfclient"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/shelfhub/shelfclient/pkg/reorder"
	"github.com/shelfhub/shelfclient/pkg/store"
)

func addShelves(topLevel *cobra.Command, r *root) {
	var withEditors bool
	cmd := &cobra.Command{
		Use:   "shelves [identity]",
		Short: "List the shelves on a profile",
		Example: `
shelfctl shelves
shelfctl shelves aaaaa-aa --editors
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				owner, err := ownerArg(c, args)
				if err != nil {
					return err
				}
				load := c.LoadCollection
				if withEditors {
					load = c.LoadProfile
				}
				if err := load(ctx, owner); err != nil {
					return err
				}
				snap := c.Snapshot()
				printShelves(cmd.OutOrStdout(), snap, snap.Shelves(store.ProfileContext(owner)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withEditors, "editors", false, "Also fetch editor sets, so access reflects editor rights.")
	topLevel.AddCommand(cmd)
}

func addShow(topLevel *cobra.Command, r *root) {
	cmd := &cobra.Command{
		Use:   "show [shelf]",
		Short: "Show a single shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				shelf, err := c.LoadShelf(ctx, args[0])
				if err != nil {
					return err
				}
				printShelves(cmd.OutOrStdout(), c.Snapshot(), models.ShelfList{shelf})
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addRecent(topLevel *cobra.Command, r *root) {
	var (
		limit  int
		before string
		pages  int
	)
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently created public shelves",
		Example: `
shelfctl recent --limit 10
shelfctl recent --limit 10 --pages 3
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cursor, err := models.ParseTimestamp(before)
			if err != nil {
				return err
			}
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				q := remote.RecentQuery{Limit: limit, Before: cursor}
				for i := 0; i < pages; i++ {
					page, err := c.LoadRecent(ctx, q)
					if err != nil {
						return err
					}
					if page.NextCursor.IsZero() {
						break
					}
					q.Before = page.NextCursor
				}
				snap := c.Snapshot()
				printShelves(cmd.OutOrStdout(), snap, snap.Shelves(store.RecentContext))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size; zero uses the default.")
	cmd.Flags().StringVar(&before, "before", "", "Only shelves created before this timestamp.")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to follow.")
	topLevel.AddCommand(cmd)
}

func addOrder(topLevel *cobra.Command, r *root) {
	cmd := &cobra.Command{
		Use:   "order [identity]",
		Short: "Print the shelf ids of a profile in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				owner, err := ownerArg(c, args)
				if err != nil {
					return err
				}
				if err := c.LoadCollection(ctx, owner); err != nil {
					return err
				}
				printOrder(cmd.OutOrStdout(), c.Snapshot().Order(store.ProfileContext(owner)))
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addReorder(topLevel *cobra.Command, r *root) {
	var (
		reference string
		after     bool
		order     []string
		owner     string
	)
	cmd := &cobra.Command{
		Use:   "reorder [shelf]",
		Short: "Move a shelf on the caller's profile",
		Long: `Move a shelf before (default) or after a reference shelf. Without a
reference the shelf goes to the front, or to the end with --after.
With --order the whole profile order is given instead.`,
		Example: `
shelfctl reorder s3 --ref s1
shelfctl reorder s1 --after
shelfctl reorder --order s3,s1,s2
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(order) > 0 {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, c *shelfclient.Client) error {
				id, err := ownerArg(c, nonEmpty(owner))
				if err != nil {
					return err
				}
				if err := c.LoadCollection(ctx, id); err != nil {
					return err
				}
				req := reorder.Request{
					ReferenceShelfID: reference,
					Before:           !after,
					Identity:         id,
					NewOrder:         order,
				}
				if len(args) > 0 {
					req.ShelfID = args[0]
				}
				out, err := c.Reorder(ctx, req)
				if err != nil {
					return err
				}
				printOrder(cmd.OutOrStdout(), out.Confirmed)
				if out.Drift {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: service settled on a different order than requested (%s)\n", strings.Join(out.Optimistic, " "))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reference, "ref", "", "Reference shelf to move next to.")
	cmd.Flags().BoolVar(&after, "after", false, "Place after the reference instead of before it.")
	cmd.Flags().StringSliceVar(&order, "order", nil, "Full target order, comma separated.")
	cmd.Flags().StringVar(&owner, "as", "", "Profile identity; defaults to the caller.")
	topLevel.AddCommand(cmd)
}

// ownerArg resolves an optional identity argument, falling back to the caller.
func ownerArg(c *shelfclient.Client, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if caller := c.Caller(); caller != "" {
		return caller, nil
	}
	return "", fmt.Errorf("no identity given and no caller configured")
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
