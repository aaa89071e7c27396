package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/journich/altairbasic/pkg/auth"
	"github.com/journich/altairbasic/pkg/basic"
	"github.com/journich/altairbasic/pkg/configuration"
	"github.com/journich/altairbasic/pkg/library"
	"github.com/journich/altairbasic/pkg/logger"
	"github.com/journich/altairbasic/pkg/session"
	"github.com/journich/altairbasic/pkg/shell"
	"github.com/journich/altairbasic/pkg/terminal"

	_ "modernc.org/sqlite"
)

func main() {
	configPath := flag.String("config", "settings.cfg", "path to the configuration file")
	serve := flag.Bool("serve", false, "serve interpreter sessions over websockets instead of the local shell")
	noDB := flag.Bool("nodb", false, "run without the program library database")
	flag.Parse()

	if err := configuration.Initialize(*configPath); err != nil {
		fmt.Printf("Error initializing configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.ConfigInfo("system started - configuration loaded from %s", *configPath)

	var db *sql.DB
	var store *library.Store
	if !*noDB {
		dbPath := configuration.GetString("Database", "path", "altairbasic.db")
		var err error
		db, err = sql.Open("sqlite", dbPath)
		if err == nil {
			err = db.Ping()
		}
		if err != nil {
			fmt.Printf("Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		store, err = library.NewWithDB(db)
		if err != nil {
			fmt.Printf("Error preparing program library: %v\n", err)
			os.Exit(1)
		}
		logger.Info(logger.AreaDatabase, "database ready at %s", dbPath)
	}

	if *serve || configuration.GetBool("Server", "enabled", false) {
		if db == nil {
			fmt.Println("Serving requires the database; drop -nodb")
			os.Exit(1)
		}
		authSvc, err := auth.New(db)
		if err != nil {
			fmt.Printf("Error preparing auth: %v\n", err)
			os.Exit(1)
		}
		sessions := session.NewManager()
		sessions.StartSweeper()
		defer sessions.Stop()

		bridge := terminal.NewBridge(sessions, authSvc)
		if err := terminal.Serve(bridge); err != nil {
			logger.Fatal(logger.AreaTerminal, "server failed: %v", err)
		}
		return
	}

	interp := basic.FromConfiguration(os.Stdin, os.Stdout)
	sh := shell.New(interp, store)
	if err := sh.Run(); err != nil {
		fmt.Printf("Shell error: %v\n", err)
		os.Exit(1)
	}
}
