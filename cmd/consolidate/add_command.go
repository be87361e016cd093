package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/waghmarepb/consolidate/internal/queue"
)

var spreadsheetExtensions = map[string]struct{}{
	".xls":  {},
	".xlsx": {},
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var noUpload bool

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Queue spreadsheet files and upload them in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selections := make([]queue.Selection, 0, len(args))
			for _, arg := range args {
				sel, err := selectionFromPath(arg)
				if err != nil {
					return err
				}
				selections = append(selections, sel)
			}

			return ctx.withManager(func(manager *queue.Manager) error {
				out := cmd.OutOrStdout()
				records, err := manager.Enqueue(cmd.Context(), selections)
				if err != nil {
					fmt.Fprintf(out, "Warning: queue state could not be persisted: %v\n", err)
				}
				for _, record := range records {
					fmt.Fprintf(out, "Queued %s (%s)\n",
						record.FileName, humanize.Bytes(uint64(record.FileSizeBytes)))
				}
				if noUpload {
					return nil
				}

				if err := manager.DispatchBatch(cmd.Context(), records); err != nil {
					return err
				}
				var failed int
				for _, record := range records {
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
					return fmt.Errorf("%d of %d uploads failed", failed, len(records))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Queue the files without uploading")
	return cmd
}

func selectionFromPath(arg string) (queue.Selection, error) {
	absPath, err := filepath.Abs(arg)
	if err != nil {
		return queue.Selection{}, fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return queue.Selection{}, fmt.Errorf("file does not exist: %s", absPath)
		}
		return queue.Selection{}, fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return queue.Selection{}, fmt.Errorf("%s is a directory", absPath)
	}

	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := spreadsheetExtensions[ext]; !ok {
		return queue.Selection{}, fmt.Errorf("unsupported file extension %q", ext)
	}

	return queue.Selection{
		Name: info.Name(),
		Size: info.Size(),
		Path: absPath,
	}, nil
}
