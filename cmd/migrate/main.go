// Command migrate is an operator convenience tool that opens the
// catalog database and applies any pending migrations, then exits. The
// server already does this itself on every start (internal/dbstore.Open
// calls Migrate unconditionally, since spec.md's migration model is
// purely additive and versioned in-process, not a separate up/down/status
// tool), so this binary exists for operators who want to pre-warm a
// database file without starting the full control plane.
//
// Grounded on the teacher's cmd/migrate/main.go flag-driven shape,
// simplified to match this repo's additive-only migration registry
// (internal/dbstore/migrate.go) which has no rollback or version
// targeting to expose.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbrown1837/webmonitor/internal/config"
	"github.com/mbrown1837/webmonitor/internal/dbstore"
)

func main() {
	envFile := flag.String("env-file", "", "optional .env-style config file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: load config: %v\n", err)
		os.Exit(1)
	}

	db, err := dbstore.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("migrate: %s is up to date\n", cfg.DatabasePath)
}
