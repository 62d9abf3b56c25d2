package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newShowCommand(opts *options) *cobra.Command {
	var output, contains string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an IP set, or check whether it contains an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireIPSet(); err != nil {
				return err
			}
			if output != "json" && output != "yaml" {
				return fmt.Errorf("invalid output format %q", output)
			}

			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			if contains != "" {
				ok, err := a.svc.Contains(cmd.Context(), opts.ipset, contains)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintf(out, "%s is registered in %s\n", contains, opts.ipset)
				} else {
					fmt.Fprintf(out, "%s is not registered in %s\n", contains, opts.ipset)
				}
				return nil
			}

			snapshot, err := a.svc.Describe(cmd.Context(), opts.ipset)
			if err != nil {
				return err
			}
			if output == "yaml" {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(snapshot)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format, json or yaml")
	cmd.Flags().StringVar(&contains, "contains", "", "only report whether this address is registered")
	return cmd
}
