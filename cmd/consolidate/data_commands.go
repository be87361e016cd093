package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDataCommand(ctx *commandContext) *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect ingested data on the consolidation service",
	}

	dataCmd.AddCommand(newDataListCommand(ctx))
	dataCmd.AddCommand(newDataClearCommand(ctx))

	return dataCmd
}

func newDataListCommand(ctx *commandContext) *cobra.Command {
	var page int
	var perPage int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newIngestClient()
			if err != nil {
				return err
			}

			result, err := client.List(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Data) == 0 {
				fmt.Fprintln(out, "No records")
				return nil
			}

			headers := []string{"Doc No", "Doc Name", "Registration", "Seller", "Purchaser", "File"}
			rows := make([][]string, 0, len(result.Data))
			for _, record := range result.Data {
				rows = append(rows, []string{
					stringField(record, "docno"),
					stringField(record, "docname"),
					stringField(record, "registrationdate"),
					stringField(record, "sellerparty"),
					stringField(record, "purchaserparty"),
					stringField(record, "file_name"),
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, nil))
			fmt.Fprintf(out, "Page %d of %d (%d records total)\n",
				result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "Records per page")
	return cmd
}

func newDataClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all ingested records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "Delete ALL ingested records? [y/N]: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				answer, _ := reader.ReadString('\n')
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			client, err := ctx.newIngestClient()
			if err != nil {
				return err
			}
			deleted, err := client.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d record(s)\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func stringField(record map[string]any, key string) string {
	if value, ok := record[key].(string); ok {
		return value
	}
	return ""
}
