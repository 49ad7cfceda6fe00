package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer
	openDB func() (*sql.DB, error)
	db     *sql.DB

	migrations  database.Migrations
	checkSchema func(*sql.DB) (int64, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, ...), or check the schema version")
	fmt.Fprintln(cli.out, "  distribute -in ROSTER.xlsx -out RESULT.xlsx -sections N [-reduction R] [-mode strict|flexible] [-tiebreak lowest_section|snake_target]")
}

// database opens the database on first use.
func (cli *commandLine) database() (*sql.DB, error) {
	if cli.db == nil {
		db, err := cli.openDB()
		if err != nil {
			return nil, err
		}
		cli.db = db
	}
	return cli.db, nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	distributeCmd := flag.NewFlagSet("distribute", flag.ExitOnError)
	distributeCmd.SetOutput(cli.out)
	distributeIn := distributeCmd.String("in", "", "The roster workbook (.xlsx). The first row holds the column names.")
	distributeOut := distributeCmd.String("out", "", "Where to write the result workbook (.xlsx).")
	distributeSections := distributeCmd.Int("sections", 0, "The number of sections to create (at least 2).")
	distributeReduction := distributeCmd.Int("reduction", cli.conf.Distribution.ReductionCount, "Seats removed from a section per special-needs student.")
	distributeMode := distributeCmd.String("mode", cli.conf.Distribution.ReductionMode, "strict: the reduced capacity is a hard cap; flexible: a preference.")
	distributeTieBreak := distributeCmd.String("tiebreak", "lowest_section", "Strict mode pick among equally full sections: lowest_section or snake_target.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "distribute":
		if err := distributeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *distributeIn == "" || *distributeOut == "" {
			distributeCmd.Usage()
			return errHelp
		}
		return cli.distribute(distributeOptions{
			in:        *distributeIn,
			out:       *distributeOut,
			sections:  *distributeSections,
			reduction: *distributeReduction,
			mode:      *distributeMode,
			tieBreak:  *distributeTieBreak,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}
