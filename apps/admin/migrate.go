package main

import "fmt"

// migrate runs a goose command, or "check" to compare the schema with the shipped migrations.
func (cli *commandLine) migrate(args []string) error {
	db, err := cli.database()
	if err != nil {
		return err
	}
	if args[0] == "check" {
		version, err := cli.checkSchema(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "schema is up to date (version %d)\n", version)
		return nil
	}
	return cli.migrations.Exec(db, args[0], args[1:]...)
}
