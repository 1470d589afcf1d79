package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/apexhq/apex/chat"
	"github.com/apexhq/apex/internal/configuration"
	"github.com/apexhq/apex/store"
)

const configFilepath = "~/.config/apex/config.json"

var rootCmd = &cobra.Command{
	Use:     "apex",
	Short:   "A conversational client for the Apex assistant",
	Version: "1.0",
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.WarnLevel)
	if os.Getenv("APEX_DEBUG") != "" {
		logger = logger.Level(zerolog.DebugLevel)
	}

	config, err := configuration.Parse(configFilepath)
	if err != nil {
		logger.Fatal().Err(err).Msg("parsing configuration")
	}

	s := store.New(config.Database, logger)
	defer s.Close()

	rootCmd.AddCommand(chat.NewCmd(config, s, logger))
	rootCmd.Execute()
}
