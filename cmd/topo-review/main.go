package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/diagnostics"
	"github.com/boundary-pipeline/internal/pkg/logger"
)

// topo-review [diagnostics.jsonl] [out.csv]
// Печатает координаты пересечений из журнала диагностики для ручной
// правки исходных шейпфайлов.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	in := cfg.Pipeline.Resolve(cfg.Pipeline.DiagnosticsLog)
	if len(os.Args) > 1 {
		in = os.Args[1]
	}

	f, err := os.Open(in)
	if err != nil {
		log.Fatal("Failed to open diagnostics log", zap.String("path", in), zap.Error(err))
	}
	defer f.Close()

	rows, err := diagnostics.ParseIntersections(f)
	if err != nil {
		log.Fatal("Failed to parse diagnostics log", zap.Error(err))
	}

	out := os.Stdout
	if len(os.Args) > 2 {
		out, err = os.Create(os.Args[2])
		if err != nil {
			log.Fatal("Failed to create output", zap.String("path", os.Args[2]), zap.Error(err))
		}
		defer out.Close()
	}

	if err := diagnostics.WriteIntersectionsCSV(out, rows); err != nil {
		log.Fatal("Failed to write CSV", zap.Error(err))
	}
	log.Info("Intersections exported", zap.Int("count", len(rows)), zap.String("source", in))
}
