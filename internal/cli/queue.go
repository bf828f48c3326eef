package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/domain"
)

func queueCmd(g *globalOpts) *cobra.Command {
	c := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage processing queue entries",
	}

	c.AddCommand(
		queueListCmd(g),
		queueGetCmd(g),
		queueCreateCmd(g),
		queueUpdateCmd(g),
		queueIDCmd(g, "delete", "Delete a queue entry"),
		queueIDCmd(g, "reprocess", "Run a queue entry again"),
	)
	return c
}

func queueListCmd(g *globalOpts) *cobra.Command {
	var skip, limit int

	c := &cobra.Command{
		Use:   "list",
		Short: "List queue entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				items, err := a.api.Queue.List(cmd.Context(), skip, limit)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, items, func(w io.Writer) { printQueueItems(w, items) })
			})
		},
	}

	c.Flags().IntVar(&skip, "skip", 0, "Number of entries to skip")
	c.Flags().IntVar(&limit, "limit", 100, "Maximum number of entries")
	return c
}

func queueGetCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "get <queue-id>",
		Short: "Show one queue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				item, err := a.api.Queue.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, item, func(w io.Writer) { printQueueItem(w, item) })
			})
		},
	}
}

func queueCreateCmd(g *globalOpts) *cobra.Command {
	var documentID int64
	var priority int
	var status string

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a queue entry for a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				item, err := a.api.Queue.Create(cmd.Context(), domain.QueueItemCreate{
					DocumentID: documentID,
					Status:     status,
					Priority:   priority,
				})
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, item, func(w io.Writer) { printQueueItem(w, item) })
			})
		},
	}

	c.Flags().Int64Var(&documentID, "document", 0, "Document id (required)")
	c.Flags().IntVar(&priority, "priority", domain.MinPriority,
		fmt.Sprintf("Queue priority (%d-%d)", domain.MinPriority, domain.MaxPriority))
	c.Flags().StringVar(&status, "status", "", "Initial status (default: pending)")
	_ = c.MarkFlagRequired("document")
	return c
}

func queueUpdateCmd(g *globalOpts) *cobra.Command {
	var status, errMsg string
	var priority int

	c := &cobra.Command{
		Use:   "update <queue-id>",
		Short: "Change status, priority or error message of a queue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			var patch domain.QueueItemPatch
			if f.Changed("status") {
				patch.Status = &status
			}
			if f.Changed("priority") {
				p := domain.ClampPriority(priority)
				patch.Priority = &p
			}
			if f.Changed("error") {
				patch.ErrorMessage = &errMsg
			}
			if patch == (domain.QueueItemPatch{}) {
				return fmt.Errorf("nothing to update: %w", domain.ErrInvalidRequest)
			}

			return withApp(cmd, g, func(a *app) error {
				item, err := a.api.Queue.Update(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, item, func(w io.Writer) { printQueueItem(w, item) })
			})
		},
	}

	c.Flags().StringVar(&status, "status", "", "New status")
	c.Flags().IntVar(&priority, "priority", domain.MinPriority, "New priority")
	c.Flags().StringVar(&errMsg, "error", "", "Error message")
	return c
}

// queueIDCmd builds the queue commands that take only an id and return the entry.
func queueIDCmd(g *globalOpts, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <queue-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				var item domain.QueueItem
				if verb == "delete" {
					item, err = a.api.Queue.Delete(cmd.Context(), id)
				} else {
					item, err = a.api.Queue.Reprocess(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				a.log.Info("cli.queue_"+verb, "queue_id", id)
				return printOut(cmd.OutOrStdout(), g.format, item, func(w io.Writer) {
					fmt.Fprintf(w, "%s: queue entry %d (document %d) is %s\n", verb, item.ID, item.DocumentID, item.Status)
				})
			})
		},
	}
}
