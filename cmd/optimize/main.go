// Command optimize searches growth parameters with CMA-ES so that headless
// runs end near a target node utilization and leaf ratio.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/sprout/config"
)

// formatDuration renders d as 1h02m03s or 2m03s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// progress records every evaluation to optimize_log.csv and remembers the
// best parameters seen, which need not be CMA-ES's final mean.
type progress struct {
	params   *ParamVector
	eval     *FitnessEvaluator
	w        *csv.Writer
	maxEvals int
	started  time.Time

	count int
	best  float64
	bestX []float64
}

func newProgress(params *ParamVector, eval *FitnessEvaluator, f *os.File, maxEvals int) *progress {
	p := &progress{
		params:   params,
		eval:     eval,
		w:        csv.NewWriter(f),
		maxEvals: maxEvals,
		started:  time.Now(),
		best:     1e9,
	}
	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	p.w.Write(header)
	return p
}

// objective evaluates a normalized point and logs it.
func (p *progress) objective(x []float64) float64 {
	raw := p.params.Denormalize(x)
	fitness := p.eval.Evaluate(raw)
	p.count++

	clamped := p.params.Clamp(raw)
	if fitness < p.best {
		p.best, p.bestX = fitness, clamped
	}

	row := []string{strconv.Itoa(p.count), strconv.FormatFloat(fitness, 'f', 6, 64)}
	for _, v := range clamped {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	p.w.Write(row)
	p.w.Flush()

	elapsed := time.Since(p.started)
	eta := time.Duration(p.maxEvals-p.count) * (elapsed / time.Duration(p.count))
	fmt.Printf("eval %d/%d fitness=%.5f util=%.3f best=%.5f elapsed=%s eta=%s\n",
		p.count, p.maxEvals, fitness, p.eval.LastUtil(), p.best,
		formatDuration(elapsed), formatDuration(eta))
	return fitness
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int64("max-ticks", 6000, "Simulation length per run in ticks")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	targetUtil := flag.Float64("target-util", 0.05, "Target live node fraction of capacity at the end of a run")
	targetLeaf := flag.Float64("target-leaf-ratio", 0.3, "Target fraction of live nodes that are leaves")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	// Runs log seeding at info; keep progress lines readable.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	baseCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg,
		Target{NodeUtil: *targetUtil, LeafRatio: *targetLeaf})

	logFile, err := os.Create(filepath.Join(*outputDir, "optimize_log.csv"))
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	prog := newProgress(params, evaluator, logFile, *maxEvals)

	popSize := *population
	if popSize == 0 {
		popSize = 4 + 3*params.Dim()/2
	}

	fmt.Printf("CMA-ES: %d parameters, population=%d, max_evals=%d, seeds=%d, ticks=%d\n",
		params.Dim(), popSize, *maxEvals, *seeds, *maxTicks)

	result, err := optimize.Minimize(
		optimize.Problem{Func: prog.objective},
		params.Normalize(params.ExtractFromConfig(baseCfg)),
		// Sequential; seeds already run in parallel inside Evaluate.
		&optimize.Settings{FuncEvaluations: *maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	best := prog.bestX
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	fmt.Printf("\n%d evaluations in %s, best fitness %.5f\n",
		prog.count, formatDuration(time.Since(prog.started)), prog.best)
	if best == nil {
		return
	}

	for i, spec := range params.Specs {
		fmt.Printf("  %-18s %.6f  (%s)\n", spec.Name, best[i], spec.Path)
	}
	if err := writeResults(*outputDir, *configPath, params, best, evaluator); err != nil {
		log.Fatal(err)
	}
}

// writeResults saves best_config.yaml and the window stats of the best run.
func writeResults(dir, configPath string, params *ParamVector, best []float64, eval *FitnessEvaluator) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(cfg, best)

	cfgPath := filepath.Join(dir, "best_config.yaml")
	if err := cfg.WriteYAML(cfgPath); err != nil {
		return err
	}
	fmt.Printf("best config: %s\n", cfgPath)

	windows := eval.BestStats()
	if len(windows) == 0 {
		return nil
	}
	statsPath := filepath.Join(dir, "best_run.csv")
	f, err := os.Create(statsPath)
	if err != nil {
		return fmt.Errorf("creating best run stats: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(windows, f); err != nil {
		return fmt.Errorf("writing best run stats: %w", err)
	}
	fmt.Printf("best run stats: %s\n", statsPath)
	return nil
}
