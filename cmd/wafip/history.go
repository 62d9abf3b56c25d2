package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

func newHistoryCommand(opts *options) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded add and remove operations",
		Long: `List recorded add and remove operations, newest first.

History is only kept across runs when DB_DRIVER is set. --ipset narrows
the listing to one IP set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ops, err := a.svc.History(cmd.Context(), domain.OperationFilter{
				IPSetName: opts.ipset,
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}

			data := make([][]string, 0, len(ops))
			for _, op := range ops {
				data = append(data, []string{
					op.ID,
					op.IPSetName,
					string(op.Operation),
					op.Status,
					strconv.Itoa(op.Attempts),
					strings.Join(op.Addresses, "\n"),
					op.CreatedAt.Local().Format(time.DateTime),
				})
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"ID", "IP SET", "OPERATION", "STATUS", "ATTEMPTS", "ADDRESSES", "CREATED"})
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of operations to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of operations to skip")
	return cmd
}
