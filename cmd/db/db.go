package db

import (
	"github.com/chainapsis/oko-sub000/internal/util/command"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("db",
		newMigrate(),
	)
}
