package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/supporthub/internal/cli"
	"github.com/cloo-solutions/supporthub/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "supporthubd",
		Short: "Supporthub API server",
		Long:  "Supporthub daemon: runs the knowledge base and ticket API and manages the database schema",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if printed, err := cli.HandleHelpJSON(rootCmd, os.Args[1:], os.Stdout); printed {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
