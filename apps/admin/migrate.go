package main

import (
	"fmt"

	"github.com/trezcool/ujuzi/storage/database"
)

func (cli *commandLine) migrate(args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	switch direction {
	case "up":
		return database.Migrate(cli.db)
	case "down":
		return database.Rollback(cli.db)
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
}
