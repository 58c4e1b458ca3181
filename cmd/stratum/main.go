package main

import (
	"os"

	"github.com/spf13/cobra"

	"stratum/internal/interfaces/cli/migrate"
	"stratum/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stratum",
		Short: "Stratum - multi-tenant data routing and isolation layer",
		Long:  `Stratum routes each tenant's traffic to its placement (shared, schema, or dedicated), manages the tenant registry, and coordinates online tier migrations.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
