package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/regroup/core"
	logsvc "github.com/trezcool/regroup/services/logger"
	"github.com/trezcool/regroup/storage/database"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	cli := commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
		openDB: func() (*sql.DB, error) {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}
			return database.Open(conf)
		},
		migrations:  database.DefaultMigrations,
		checkSchema: database.CheckSchema,
	}
	err := cli.run(os.Args)
	if cli.db != nil {
		_ = cli.db.Close()
	}
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
