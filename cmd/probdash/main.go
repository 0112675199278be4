package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/coffersTech/probdash/internal/config"
	"github.com/coffersTech/probdash/internal/pkg/logging"
)

var log = logging.For("probdash")

// newRootCmd builds the command tree. Settings are read from the
// environment before any subcommand runs.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "probdash",
		Short:         "Team problem list dashboard",
		Long:          `Track which team member solved which problem of a shared problem sheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load()
			if err != nil {
				return err
			}
			a.settings = s
			return logging.SetLevel(s.LogLevel)
		},
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newSetStatusCmd(a),
		newExplainCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("probdash failed")
		os.Exit(1)
	}
}
