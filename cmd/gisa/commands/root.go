package commands

import (
	"github.com/koscakluka/gisa/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gisa",
	Short: "GISA, the Energisa voice assistant",
	Long: `GISA answers Energisa customers by voice. Caller speech is transcribed,
answered by a language model and spoken back.

Configuration is read from an optional YAML file, then .env in the working
directory, then the environment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
