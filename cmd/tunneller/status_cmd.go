package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the running agent's control-session state and stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(adminURL("/status"))
			if err != nil {
				return fmt.Errorf("contacting admin API at %s: %w", adminAddr, err)
			}
			defer resp.Body.Close()

			var out map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func adminURL(path string) string {
	return "http://" + adminAddr + path
}
