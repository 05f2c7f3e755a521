package main

import (
	"github.com/chainapsis/oko-sub000/cmd/db"
	"github.com/chainapsis/oko-sub000/cmd/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oko-tss-server",
		Short: "TSS session and stage management service",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		db.New(),
		server.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute root command")
	}
}
