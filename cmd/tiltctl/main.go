package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tilt-dashboard/cmd/tiltctl/commands/scan"
	"tilt-dashboard/cmd/tiltctl/commands/score"
	"tilt-dashboard/internal/config"
	"tilt-dashboard/internal/logger"
)

func main() {
	log := logger.New(logger.ParseLevel(config.String("LOG_LEVEL", "info")))
	log.SetOutput(os.Stderr)

	if err := newRootCommand(log).Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCommand(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tiltctl",
		Short:         "Score vendor assessments and run OSINT checks from the command line",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.Bool("debug", false, "debug logging")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	}

	cmd.AddCommand(scan.New(log), score.New(log))
	return cmd
}
