package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/msisim/datarecording"
	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/mem/coherence/acceptancetests/randomaccess"
	"github.com/sarchlab/msisim/mem/coherence/directory"
	"github.com/sarchlab/msisim/mem/coherence/hierarchy"
	"github.com/sarchlab/msisim/monitoring"
	"github.com/sarchlab/msisim/sim"
	"github.com/sarchlab/msisim/tracing"
)

type runOptions struct {
	numCores       int
	accesses       int
	seed           int64
	storeRatio     float64
	maxAddress     uint64
	maxPending     int
	exclusive      bool
	l1Sets         int
	l1Ways         int
	dirSets        int
	dirWays        int
	jitter         int
	checkEachEvent bool
	transitionsCSV string
	sqlitePath     string
	monitor        bool
	monitorPort    int
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a random load/store workload.",
		Long: "`run` issues random loads and stores from every core, checks " +
			"that loads observe the last committed store, and prints a " +
			"summary. Flag defaults can be set with MSISIM_* variables, " +
			"also from a .env file.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.numCores, "cores", envInt("MSISIM_CORES", 4),
		"Number of cores.")
	f.IntVar(&opts.accesses, "accesses", envInt("MSISIM_ACCESSES", 10000),
		"Accesses issued by each core.")
	f.Int64Var(&opts.seed, "seed", int64(envInt("MSISIM_SEED", 1)),
		"Random seed of the workload and the network jitter.")
	f.Float64Var(&opts.storeRatio, "store-ratio",
		envFloat("MSISIM_STORE_RATIO", 0.5),
		"Share of the accesses that are stores.")
	f.Uint64Var(&opts.maxAddress, "max-address",
		uint64(envInt("MSISIM_MAX_ADDRESS", 1<<16)),
		"Accesses fall in [0, max-address).")
	f.IntVar(&opts.maxPending, "max-pending", envInt("MSISIM_MAX_PENDING", 4),
		"Outstanding accesses per core.")
	f.BoolVar(&opts.exclusive, "exclusive",
		envBool("MSISIM_EXCLUSIVE", false),
		"Grant exclusive copies on first touch.")
	f.IntVar(&opts.l1Sets, "l1-sets", envInt("MSISIM_L1_SETS", 64),
		"Number of sets of each L1.")
	f.IntVar(&opts.l1Ways, "l1-ways", envInt("MSISIM_L1_WAYS", 4),
		"Number of ways of each L1.")
	f.IntVar(&opts.dirSets, "dir-sets", envInt("MSISIM_DIR_SETS", 256),
		"Number of sets of the directory.")
	f.IntVar(&opts.dirWays, "dir-ways", envInt("MSISIM_DIR_WAYS", 8),
		"Number of ways of the directory.")
	f.IntVar(&opts.jitter, "jitter", envInt("MSISIM_JITTER", 0),
		"Maximum extra network delay in cycles.")
	f.BoolVar(&opts.checkEachEvent, "check-invariants",
		envBool("MSISIM_CHECK_INVARIANTS", false),
		"Check the directory invariants after every event.")
	f.StringVar(&opts.transitionsCSV, "transitions-csv",
		envString("MSISIM_TRANSITIONS_CSV", ""),
		"Write transition counts into this CSV file at exit.")
	f.StringVar(&opts.sqlitePath, "sqlite",
		envString("MSISIM_SQLITE", ""),
		"Record transitions and messages into this SQLite file.")
	f.BoolVar(&opts.monitor, "monitor", envBool("MSISIM_MONITOR", false),
		"Serve the monitoring API while running.")
	f.IntVar(&opts.monitorPort, "monitor-port",
		envInt("MSISIM_MONITOR_PORT", 0),
		"Port of the monitoring API. A random port is used if not set.")

	return cmd
}

func buildSystem(opts *runOptions) *hierarchy.System {
	policy := directory.FirstTouchShared
	if opts.exclusive {
		policy = directory.FirstTouchExclusive
	}

	return hierarchy.MakeBuilder().
		WithNumCores(opts.numCores).
		WithL1Geometry(opts.l1Sets, opts.l1Ways).
		WithDirectoryGeometry(opts.dirSets, opts.dirWays).
		WithFirstTouchPolicy(policy).
		WithNetworkJitter(opts.jitter, opts.seed).
		Build("MSI")
}

func run(opts *runOptions) error {
	if opts.numCores <= 0 {
		return fmt.Errorf("cores must be positive, got %d", opts.numCores)
	}

	sys := buildSystem(opts)

	counter := tracing.NewTransitionCounter()
	latency := tracing.NewAccessLatencyTracer()
	sys.AcceptHook(counter)
	sys.AcceptHook(latency)

	recorder, err := attachRecorders(sys, opts, counter)
	if err != nil {
		return err
	}

	var checker *randomaccess.InvariantChecker
	if opts.checkEachEvent {
		checker = randomaccess.NewInvariantChecker(sys)
		sys.Engine.AcceptHook(checker)
	}

	agent := randomaccess.MakeBuilder().
		WithSeed(opts.seed).
		WithAccessesPerCore(opts.accesses).
		WithStoreRatio(opts.storeRatio).
		WithMaxAddress(opts.maxAddress).
		WithMaxPending(opts.maxPending).
		Build(sys)

	if opts.monitor {
		if err := startMonitor(sys, opts, counter); err != nil {
			return err
		}
	}

	agent.Start()

	if err := sys.Run(); err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	if recorder != nil {
		if err := recorder.Flush(); err != nil {
			return fmt.Errorf("flushing recorder: %w", err)
		}
	}

	return report(sys, agent, checker, latency)
}

func attachRecorders(
	sys *hierarchy.System,
	opts *runOptions,
	counter *tracing.TransitionCounter,
) (datarecording.DataRecorder, error) {
	if opts.transitionsCSV != "" {
		w := tracing.NewCSVTransitionWriter(opts.transitionsCSV, counter)
		if err := w.Init(); err != nil {
			return nil, fmt.Errorf("creating transition CSV: %w", err)
		}
	}

	if opts.sqlitePath == "" {
		return nil, nil
	}

	recorder, err := datarecording.New(opts.sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("creating recorder: %w", err)
	}

	sys.AcceptHook(datarecording.NewTransitionRecorder(recorder))
	sys.Router.AcceptHook(datarecording.NewMsgRecorder(recorder))

	return recorder, nil
}

func startMonitor(
	sys *hierarchy.System,
	opts *runOptions,
	counter *tracing.TransitionCounter,
) error {
	m := monitoring.NewMonitor()
	if opts.monitorPort != 0 {
		m = m.WithPortNumber(opts.monitorPort)
	}

	m.RegisterEngine(sys.Engine)
	m.RegisterTransitionCounter(counter)

	for _, c := range sys.Controllers() {
		m.RegisterController(c)
	}

	bar := m.CreateProgressBar("Accesses",
		uint64(opts.numCores*opts.accesses))
	sys.AcceptHook(&progressHook{bar: bar})

	_, err := m.StartServer()

	return err
}

type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h *progressHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case coherence.HookPosAccessBegin:
		h.bar.Start(1)
	case coherence.HookPosAccessDone:
		a := ctx.Item.(*coherence.Access)
		h.bar.Finish(uint64(1 + len(a.Aliases)))
	}
}

func report(
	sys *hierarchy.System,
	agent *randomaccess.Agent,
	checker *randomaccess.InvariantChecker,
	latency *tracing.AccessLatencyTracer,
) error {
	failures := []error{agent.Err()}

	if checker != nil {
		failures = append(failures, checker.Err())
	}

	if !agent.Done() {
		failures = append(failures,
			errors.New("simulation stopped with accesses outstanding"))
	} else {
		failures = append(failures, sys.CheckCoherence())
	}

	title := color.New(color.Bold)
	title.Fprintln(os.Stdout, "msisim summary")
	fmt.Printf("  cycles:          %d\n", sys.Engine.CurrentTime())
	fmt.Printf("  loads / stores:  %d / %d\n", agent.NumLoads, agent.NumStores)
	fmt.Printf("  hit rate:        %.2f%%\n", 100*latency.HitRate())
	fmt.Printf("  average latency: %.2f cycles\n", latency.AverageLatency())
	fmt.Printf("  max latency:     %d cycles\n", latency.MaxLatency())

	if checker != nil {
		fmt.Printf("  invariant checks: %d\n", checker.NumChecks)
	}

	for _, err := range failures {
		if err != nil {
			color.New(color.FgRed, color.Bold).Fprintln(os.Stdout, "FAILED")
			return err
		}
	}

	color.New(color.FgGreen, color.Bold).Fprintln(os.Stdout, "PASSED")

	return nil
}
