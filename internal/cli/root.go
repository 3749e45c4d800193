package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand. Empty values fall back to the
// config file and the environment.
type globalFlags struct {
	configPath string
	apiURL     string
	socketURL  string
	profile    string
	logLevel   string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "quizblitz",
		Short:         "Host and play real-time multiplayer quizzes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", envConfig, "path to YAML config")
	pf.StringVar(&flags.apiURL, "api-url", "", "backend REST base URL")
	pf.StringVar(&flags.socketURL, "socket-url", "", "backend websocket URL")
	pf.StringVar(&flags.profile, "profile", "", "identity profile; use different profiles to play from several terminals")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newQuizCmd(flags))
	cmd.AddCommand(newHostCmd(flags))
	cmd.AddCommand(newJoinCmd(flags))
	cmd.AddCommand(newPreviewCmd(flags))
	return cmd
}
