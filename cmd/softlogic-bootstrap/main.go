// Command softlogic-bootstrap creates the SQLite schema for a rule
// model and loads a facts YAML file into it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/cognicore/softlogic/pkg/softlogic/config"
	"github.com/cognicore/softlogic/pkg/softlogic/facts/sqlite"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
)

func main() {
	var (
		modelPath = flag.String("model", "", "Path to model YAML (required)")
		factsPath = flag.String("facts", "", "Path to facts YAML (required)")
		dbPath    = flag.String("db", "", "Path to SQLite database to create (required)")
	)
	flag.Parse()

	if *modelPath == "" {
		log.Fatal("--model required")
	}
	if *factsPath == "" {
		log.Fatal("--facts required")
	}
	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()

	model, err := config.LoadModel(*modelPath)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}

	reg := predicate.NewRegistry()
	if _, _, err := model.Build(reg); err != nil {
		log.Fatalf("build model: %v", err)
	}

	store, err := sqlite.Open(ctx, *dbPath, reg.All())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	defs, err := config.LoadFacts(*factsPath)
	if err != nil {
		log.Fatalf("load facts: %v", err)
	}

	loaded := 0
	for _, def := range defs.Facts {
		p, args, err := rule.ParseGroundAtomText(reg, def.Atom)
		if err != nil {
			log.Fatalf("fact %q: %v", def.Atom, err)
		}
		if err := store.Observe(ctx, p, args, def.TruthValue()); err != nil {
			log.Fatalf("store fact %q: %v", def.Atom, err)
		}
		loaded++
	}

	fmt.Printf("loaded %d facts into %s\n", loaded, *dbPath)
}
