// Command demesne plays or serves manor runs.
//
//	demesne run   -seed <seed> [-policy <id>] [-turns <n>]  play a run locally
//	demesne serve [-port <n>] [-db <path>]                  serve the HTTP API
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/talgya/demesne/internal/api"
	"github.com/talgya/demesne/internal/engine"
	"github.com/talgya/demesne/internal/persistence"
	"github.com/talgya/demesne/internal/policy"
	"github.com/talgya/demesne/internal/tuning"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: demesne run|serve [flags]")
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	seed := fs.String("seed", "", "run seed (required)")
	policyID := fs.String("policy", policy.DefaultAlias, "autoplay policy")
	turns := fs.Int("turns", 10, "turns to play")
	dbPath := fs.String("db", "", "save the run to this SQLite database")
	tuningPath := fs.String("tuning", "", "YAML tuning overrides")
	fs.Parse(args)

	if *seed == "" {
		slog.Error("a seed is required")
		os.Exit(2)
	}
	pol, err := policy.Resolve(*policyID)
	if err != nil {
		slog.Error("bad policy", "error", err)
		os.Exit(2)
	}

	cfg := tuning.Defaults()
	if *tuningPath != "" {
		cfg, err = tuning.Load(*tuningPath)
		if err != nil {
			slog.Error("load tuning", "path", *tuningPath, "error", err)
			os.Exit(1)
		}
	}

	s := engine.NewRunWithTuning(*seed, cfg)
	slog.Info("run created", "seed", *seed, "policy", pol,
		"houses", len(s.Houses), "people", len(s.People))

	for i := 0; i < *turns && s.Active(); i++ {
		ctx := engine.ProposeTurn(s)
		d, err := policy.Decide(pol, s, ctx)
		if err != nil {
			slog.Error("policy failed", "error", err)
			os.Exit(1)
		}
		s = engine.ApplyDecisions(s, d)
		rep := s.Log[len(s.Log)-1].Report
		slog.Info("turn played",
			"turn", rep.TurnIndex,
			"year", rep.Year,
			"bushels", s.Manor.Bushels,
			"coin", s.Manor.Coin,
			"population", s.Manor.Population,
			"unrest", s.Manor.Unrest,
			"shortage", rep.Shortage,
		)
		for _, n := range rep.Notes {
			slog.Info("note", "turn", rep.TurnIndex, "text", n)
		}
	}
	if s.GameOver != nil {
		slog.Info("run over", "reason", s.GameOver.Reason, "turn", s.GameOver.Turn)
	}

	if *dbPath != "" {
		st, err := persistence.Open(*dbPath)
		if err != nil {
			slog.Error("open database", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer st.Close()
		id, err := st.CreateRun(s, policy.Sanitize(pol))
		if err != nil {
			slog.Error("save run", "error", err)
			os.Exit(1)
		}
		slog.Info("run saved", "id", id, "path", *dbPath)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 8080, "listen port")
	dbPath := fs.String("db", "data/demesne.db", "SQLite database path")
	fs.Parse(args)

	if dir := filepath.Dir(*dbPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	st, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("database opened", "path", *dbPath)

	srv := &api.Server{Store: st, Port: *port}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
}
