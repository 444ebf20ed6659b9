package commands

import (
	"context"

	"auscultify/internal/di"

	"github.com/spf13/cobra"
)

// Opener builds the service container the first time a command needs the database
type Opener func(ctx context.Context) (di.ServiceContainerInterface, error)

// NewRootCommand assembles the adm command tree
func NewRootCommand(env *Env, open Opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Auscultify administration tool",
		Long: `Auscultify administration tool

Operator commands for accounts, the database schema and the audio manifests.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if env.Container != nil || !NeedsDatabase(cmd) {
				return nil
			}
			container, err := open(cmd.Context())
			if err != nil {
				return err
			}
			env.Container = container
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(UserCommands(env))
	rootCmd.AddCommand(DatabaseCommands(env))
	rootCmd.AddCommand(ManifestCommands(env))
	rootCmd.AddCommand(VersionCommand(env))

	return rootCmd
}
