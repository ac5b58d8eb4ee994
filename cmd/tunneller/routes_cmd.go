package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/me-sharif-hasan/tunneller/internal/config"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List or edit the running agent's routing table",
	}
	cmd.AddCommand(newRoutesListCmd())
	cmd.AddCommand(newRoutesAddCmd())
	cmd.AddCommand(newRoutesRemoveCmd())
	return cmd
}

func newRoutesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current routing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(adminURL("/routes/"))
			if err != nil {
				return fmt.Errorf("contacting admin API at %s: %w", adminAddr, err)
			}
			defer resp.Body.Close()

			var routes []config.RuleSpec
			if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
				return err
			}
			for i, r := range routes {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s -> %s:%d (strip=%v, forwardHost=%v, ssl=%v)\n",
					i, r.PathPattern, r.TargetHost, r.TargetPort, r.StripPrefix, r.ForwardHost, r.UseSSL)
			}
			return nil
		},
	}
}

func newRoutesAddCmd() *cobra.Command {
	var (
		pattern     string
		targetHost  string
		targetPort  int
		strip       bool
		forwardHost bool
		useSSL      bool
		priority    int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a routing rule to the running agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := config.RuleSpec{
				PathPattern: pattern,
				TargetHost:  targetHost,
				TargetPort:  targetPort,
				StripPrefix: strip,
				ForwardHost: forwardHost,
				UseSSL:      useSSL,
			}
			if cmd.Flags().Changed("priority") {
				spec.Priority = &priority
			}
			body, err := json.Marshal(spec)
			if err != nil {
				return err
			}
			resp, err := http.Post(adminURL("/routes/"), "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("contacting admin API at %s: %w", adminAddr, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				return fmt.Errorf("admin API rejected rule: status %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rule added")
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "path", "", "path pattern, e.g. /api/* or /api/users")
	cmd.Flags().StringVar(&targetHost, "host", "", "backend host")
	cmd.Flags().IntVar(&targetPort, "port", 0, "backend port")
	cmd.Flags().BoolVar(&strip, "strip-prefix", false, "strip the matched wildcard prefix before forwarding")
	cmd.Flags().BoolVar(&forwardHost, "forward-host", false, "rewrite Host to the backend and add X-Forwarded-Host")
	cmd.Flags().BoolVar(&useSSL, "ssl", false, "dial the backend with TLS (trust-all)")
	cmd.Flags().IntVar(&priority, "priority", 100, "lower runs first; ties break by pattern specificity")
	return cmd
}

func newRoutesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the routing rule at the given index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodDelete, adminURL("/routes/"+args[0]), nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("contacting admin API at %s: %w", adminAddr, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				return fmt.Errorf("admin API rejected removal: status %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rule removed")
			return nil
		},
	}
}
