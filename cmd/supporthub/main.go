package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/supporthub/internal/cli"
	"github.com/cloo-solutions/supporthub/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "supporthub",
		Short: "Supporthub CLI - tickets and knowledge base",
		Long: `Supporthub CLI works tickets through their lifecycle and manages the
knowledge base they feed.

Environment variables:
  SUPPORTHUB_API_URL     API base URL (default: http://localhost:8080)
  SUPPORTHUB_TENANT      Tenant ID
  SUPPORTHUB_USER_ID     Acting user ID (required)
  SUPPORTHUB_USER_NAME   Acting user display name
  SUPPORTHUB_ROLE        engineer, admin or customer (default: engineer)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	client.AddGlobalFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.TicketCmd())
	rootCmd.AddCommand(client.KbCmd())

	if printed, err := cli.HandleHelpJSON(rootCmd, os.Args[1:], os.Stdout); printed {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
