// Command softlogic-infer runs MPE inference for a YAML rule model over
// observed facts held in a YAML file or a SQLite database, and prints
// the inferred open atoms.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cognicore/softlogic/pkg/softlogic"
	"github.com/cognicore/softlogic/pkg/softlogic/config"
	"github.com/cognicore/softlogic/pkg/softlogic/facts"
	"github.com/cognicore/softlogic/pkg/softlogic/facts/memstore"
	"github.com/cognicore/softlogic/pkg/softlogic/facts/sqlite"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
	"github.com/cognicore/softlogic/pkg/softlogic/reasoner"
	"github.com/cognicore/softlogic/pkg/softlogic/rounding"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
)

func main() {
	var (
		modelPath = flag.String("model", "", "Path to model YAML (required)")
		factsPath = flag.String("facts", "", "Path to facts YAML")
		dbPath    = flag.String("db", "", "Path to SQLite fact database")
		roundMode = flag.String("rounding", "greedy", "Rounding mode: greedy, simple or none")
		maxIter   = flag.Int("max-iter", 500, "Reasoner iteration limit")
		tolerance = flag.Float64("tolerance", 1e-6, "Reasoner convergence tolerance")
		seed      = flag.Int64("seed", 0, "Seed for simple rounding (0 = time-based)")
		parallel  = flag.Bool("parallel", false, "Ground rule templates concurrently")
	)
	flag.Parse()

	if *modelPath == "" {
		log.Fatal("--model required")
	}
	if *factsPath == "" && *dbPath == "" {
		log.Fatal("--facts or --db required")
	}

	ctx := context.Background()

	model, err := config.LoadModel(*modelPath)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}

	reg := predicate.NewRegistry()
	templates, open, err := model.Build(reg)
	if err != nil {
		log.Fatalf("build model: %v", err)
	}

	store, err := openStore(ctx, reg, open, *factsPath, *dbPath)
	if err != nil {
		log.Fatalf("open fact store: %v", err)
	}

	solver, err := reasoner.New(reasoner.Config{
		MaxIterations:     *maxIter,
		Tolerance:         *tolerance,
		ConstraintPenalty: reasoner.DefaultConfig().ConstraintPenalty,
	})
	if err != nil {
		log.Fatalf("configure reasoner: %v", err)
	}

	var disc rounding.Discretizer
	switch *roundMode {
	case "greedy":
		disc = rounding.NewGreedy(templates)
	case "simple":
		s := *seed
		if s == 0 {
			s = time.Now().UnixNano()
		}
		disc = rounding.NewSimple(s)
	case "none":
	default:
		log.Fatalf("unknown rounding mode %q", *roundMode)
	}

	engine, err := softlogic.New(softlogic.Options{
		Store:             store,
		Templates:         templates,
		Open:              open,
		Reasoner:          solver,
		Discretizer:       disc,
		ParallelGrounding: *parallel,
	})
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	res, err := engine.Infer(ctx)
	if err != nil {
		log.Fatalf("inference: %v", err)
	}
	if disc == nil {
		if err := engine.CommitAll(ctx); err != nil {
			log.Printf("commit continuous values: %v", err)
		}
	}

	fmt.Printf("session %s: %d ground rules, objective %.6f, infeasibility %.6f\n",
		res.SessionID, res.GroundRules, res.Objective, res.Feasibility)

	names := make([]string, 0, len(res.Values))
	for name := range res.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s = %.4f\n", name, res.Values[name])
	}
}

func openStore(ctx context.Context, reg *predicate.Registry, open []*predicate.Predicate, factsPath, dbPath string) (facts.Store, error) {
	if dbPath != "" {
		return sqlite.Open(ctx, dbPath, reg.All(), open...)
	}

	mem := memstore.New(open...)
	defs, err := config.LoadFacts(factsPath)
	if err != nil {
		return nil, err
	}
	for _, def := range defs.Facts {
		p, args, err := rule.ParseGroundAtomText(reg, def.Atom)
		if err != nil {
			return nil, err
		}
		if err := mem.Observe(p, args, def.TruthValue()); err != nil {
			return nil, err
		}
	}
	return mem, nil
}
