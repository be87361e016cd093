package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/waghmarepb/consolidate/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCompletedCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show queued uploads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				out := cmd.OutOrStdout()
				records := manager.Records()
				if len(records) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					detail := record.ErrorMessage
					rows = append(rows, []string{
						shortID(record.ID),
						record.FileName,
						humanize.Bytes(uint64(record.FileSizeBytes)),
						statusLabel(record.Status, colorize),
						record.AddedAt.Local().Format("2006-01-02 15:04:05"),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "File", "Size", "Status", "Added", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a record from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				id, err := resolveRecordID(manager, args[0])
				if err != nil {
					return err
				}
				removed, err := manager.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !removed {
					fmt.Fprintf(out, "No record with ID %s\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Removed %s\n", shortID(id))
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Upload all pending and failed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				out := cmd.OutOrStdout()
				var retryable []*queue.UploadRecord
				for _, record := range manager.Records() {
					switch record.Status {
					case queue.StatusPending:
						retryable = append(retryable, record)
					case queue.StatusFailed:
						if err := manager.Reset(cmd.Context(), record.ID); err != nil {
							return err
						}
						retryable = append(retryable, record)
					}
				}
				if len(retryable) == 0 {
					fmt.Fprintln(out, "Nothing to upload")
					return nil
				}

				if err := manager.DispatchBatch(cmd.Context(), retryable); err != nil {
					return err
				}
				var failed int
				for _, record := range retryable {
					current := manager.Find(record.ID)
					if current == nil {
						continue
					}
					switch current.Status {
					case queue.StatusCompleted:
						fmt.Fprintf(out, "Uploaded %s\n", current.FileName)
					case queue.StatusFailed:
						failed++
						fmt.Fprintf(out, "Failed %s: %s\n", current.FileName, current.ErrorMessage)
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d uploads failed", failed, len(retryable))
				}
				return nil
			})
		},
	}
}

func newQueueClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove all completed records from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				var cleared int
				for _, record := range manager.Records() {
					if record.Status != queue.StatusCompleted {
						continue
					}
					removed, err := manager.Remove(cmd.Context(), record.ID)
					if err != nil {
						return err
					}
					if removed {
						cleared++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed record(s)\n", cleared)
				return nil
			})
		},
	}
}

// resolveRecordID accepts a full record ID or an unambiguous prefix.
func resolveRecordID(manager *queue.Manager, arg string) (string, error) {
	if manager.Find(arg) != nil {
		return arg, nil
	}
	var matches []string
	for _, record := range manager.Records() {
		if len(arg) >= 4 && len(arg) <= len(record.ID) && record.ID[:len(arg)] == arg {
			matches = append(matches, record.ID)
		}
	}
	switch len(matches) {
	case 0:
		return arg, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ID prefix %q matches %d records", arg, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
