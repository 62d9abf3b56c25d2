package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/validation"
)

func newAddCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add ADDRESS[,ADDRESS...]...",
		Short: "Add addresses to an IP set",
		Long: `Add addresses to an IP set.

Addresses may be bare IPs or CIDR blocks, given as separate arguments
or as comma separated lists. Either every address is added or none is.`,
		Example: "  wafip --ipset office add 203.0.113.7,198.51.100.0/24",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts, args, domain.OperationAdd)
		},
	}
}

func newRemoveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ADDRESS[,ADDRESS...]...",
		Aliases: []string{"delete"},
		Short:   "Remove addresses from an IP set",
		Example: "  wafip --ipset office remove 203.0.113.7",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts, args, domain.OperationRemove)
		},
	}
}

func runUpdate(cmd *cobra.Command, opts *options, args []string, op domain.Operation) error {
	if err := opts.requireIPSet(); err != nil {
		return err
	}

	a, err := opts.newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	raw := validation.SplitAddressList(args...)
	var record *domain.OperationRecord
	if op == domain.OperationAdd {
		record, err = a.svc.AddAddresses(cmd.Context(), opts.ipset, raw)
	} else {
		record, err = a.svc.RemoveAddresses(cmd.Context(), opts.ipset, raw)
	}
	if err != nil {
		return err
	}

	verb := "added to"
	if op == domain.OperationRemove {
		verb = "removed from"
	}
	out := cmd.OutOrStdout()
	if record.Status == domain.StatusNoop {
		fmt.Fprintf(out, "%d address(es) already %s %s\n", len(record.Addresses), verb, opts.ipset)
		return nil
	}
	fmt.Fprintf(out, "%d address(es) %s %s after %d attempt(s)\n", len(record.Addresses), verb, opts.ipset, record.Attempts)
	return nil
}
