// Command signalctl evaluates indicator snapshots offline and prints the
// results as tables. Input is a JSON array or JSON lines, each entry in the
// same shape the snapshots topic accepts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	internalrepo "SignalEngine/internal/repository"
	"SignalEngine/internal/services/signals"
	"SignalEngine/internal/usecase"
	"SignalEngine/pkg/cache"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/metrics"
)

const usage = `usage:
  signalctl families [-catalog path]
  signalctl eval [-catalog path] [-family name] [-factors] [file|-]
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "signalctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	catalog := fs.String("catalog", "", "family catalog YAML (defaults to the built-in families)")
	family := fs.String("family", "", "family to evaluate with (default camarilla)")
	factors := fs.Bool("factors", false, "print the confidence audit trail of each result")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cat, err := signals.LoadCatalog(*catalog)
	if err != nil {
		return err
	}
	engine := signals.NewEngine(cat)

	switch args[0] {
	case "families":
		renderFamilies(out, engine.Families())
		return nil
	case "eval":
		in := stdin
		if name := fs.Arg(0); name != "" && name != "-" {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		msgs, err := readMessages(in)
		if err != nil {
			return err
		}

		snapshots := internalrepo.NewCacheSnapshotStore(cache.NewMemoryCache(), time.Hour)
		uc := usecase.NewSignalEvaluator(engine, snapshots, nil, nil, nil,
			metrics.New(prometheus.NewRegistry()), applogger.Nop(),
			usecase.EvaluatorConfig{DefaultFamily: signals.FamilyCamarilla})

		rows := make([]evalRow, 0, len(msgs))
		for i, m := range msgs {
			symbol, fam, raw, err := usecase.DecodeSnapshotMessage(m)
			if err != nil {
				rows = append(rows, evalRow{Index: i + 1, Err: err})
				continue
			}
			if *family != "" {
				fam = *family
			}
			res, err := uc.Evaluate(context.Background(), symbol, fam, raw)
			rows = append(rows, evalRow{Index: i + 1, Result: res, Err: err})
		}
		renderResults(out, rows, *factors)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
