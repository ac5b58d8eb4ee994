// Command tunneller runs the reverse-tunnel agent: it dials out to a relay's
// signal port, registers a domain, and forwards every inbound CONNECT to a
// local backend, either by raw splice or by path-based routing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/config"
)

var (
	configPath string
	adminAddr  string
	debug      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tunneller",
		Short: "Reverse-tunnel agent: expose a local backend through a relay",
		Long: `tunneller dials out to a relay over a long-lived signal channel,
registers a domain, and answers each CONNECT by opening a fresh data
channel back to the relay and splicing it to a local backend.

Running 'tunneller agent' starts the control loop and the local admin
HTTP API in the foreground. Use the other subcommands, pointed at
--admin-addr, to inspect or reconfigure a running agent.`,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default: ~/.tunneller/tunneller-config.json)")
	root.PersistentFlags().StringVar(&adminAddr, "admin-addr", "127.0.0.1:9090", "admin HTTP API bind address")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")

	root.AddCommand(newAgentCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newRoutesCmd())

	return root
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultConfigPath()
}

func loadStore() (*config.Store, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	doc, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	store, err := config.New(doc)
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}
