package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath  string
	sessionPath string
	server      string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "ira",
		Short:         "Incident response agent backend and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "server config file (yaml)")
	root.PersistentFlags().StringVar(&flags.sessionPath, "session-file", "", "client session file (default ~/.ira/session.yaml)")
	root.PersistentFlags().StringVar(&flags.server, "server", "", "API base URL for client commands")

	root.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
		newSeedCmd(flags),
		newLoginCmd(flags),
		newRegisterCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newChatCmd(flags),
		newHistoryCmd(flags),
		newIncidentsCmd(flags),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
