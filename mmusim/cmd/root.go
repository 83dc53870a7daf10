// Package cmd provides the command-line interface of mmusim.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/sarchlab/mmusim/datarecording"
	"github.com/sarchlab/mmusim/mem/backingstore"
	"github.com/sarchlab/mmusim/mem/mem"
	"github.com/sarchlab/mmusim/monitoring"
	"github.com/sarchlab/mmusim/sim"
	"github.com/sarchlab/mmusim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

// Exit codes of the command.
const (
	exitTraceNotOpened = 1
	exitFatal          = 2
)

const (
	defaultTraceFile    = "addresses.txt"
	defaultMemoryFile   = "data_memory.txt"
	defaultBackingStore = "backing_store.txt"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mmusim [trace-file]",
	Short: "mmusim translates a trace of virtual addresses through a simulated MMU.",
	Long: `mmusim translates a trace of virtual addresses through a simulated ` +
		`MMU with a TLB, a flat page table for 16-bit addresses and a ` +
		`two-level page table for 32-bit addresses, and prints the value ` +
		`read from physical memory for each address.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		loadEnv()
	},
	Run: func(cmd *cobra.Command, args []string) {
		tracePath := defaultTraceFile
		if len(args) > 0 {
			tracePath = args[0]
		}

		run(cmd, tracePath)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	atexit.Exit(exitCodeOf(rootCmd.Execute()))
}

// exitCodeOf maps the error of a command to the exit code. Failing to open
// the trace exits directly with exitTraceNotOpened, so every error that
// reaches here is fatal.
func exitCodeOf(err error) int {
	if err != nil {
		return exitFatal
	}

	return 0
}

func init() {
	f := rootCmd.Flags()
	f.String("memory", "", "Physical memory image (env MMUSIM_MEMORY, default "+
		defaultMemoryFile+")")
	f.String("backing-store", "", "Backing store (env MMUSIM_BACKING_STORE, "+
		"default "+defaultBackingStore+")")
	f.Int("tlb-entries", 16, "Number of TLB entries")
	f.Bool("no-premap", false,
		"Do not map the pages covered by the memory image at start")
	f.Bool("summary", false, "Print translation statistics at the end")
	f.String("record", "",
		"Record every translation into <name>.sqlite3")
	f.Bool("monitor", false, "Serve the simulation state over HTTP")
	f.Int("monitor-port", 0, "Port of the monitoring server, random if 0")
	f.Bool("open-browser", false, "Open the monitoring server in a browser")
	f.Bool("hold", false,
		"Keep the monitoring server alive after the trace completes")

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "warn", "Diagnostic log level")
	pf.String("log-format", "console", "Diagnostic log format, console or json")
}

func loadEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}
}

func settingOrEnv(cmd *cobra.Command, flag, env, def string) string {
	v, _ := cmd.Flags().GetString(flag)
	if v != "" {
		return v
	}

	if v := os.Getenv(env); v != "" {
		return v
	}

	return def
}

func mustCreateLogger(cmd *cobra.Command) *zap.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	logger, err := newLogger(level, format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(exitFatal)
	}

	return logger
}

func run(cmd *cobra.Command, tracePath string) {
	logger := mustCreateLogger(cmd)
	defer func() { _ = logger.Sync() }()

	traceFile, err := os.Open(tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open %s\n", tracePath)
		atexit.Exit(exitTraceNotOpened)
	}
	defer traceFile.Close()

	memoryPath := settingOrEnv(cmd, "memory", "MMUSIM_MEMORY",
		defaultMemoryFile)
	storage, err := mem.LoadStorageFile(memoryPath)
	if err != nil {
		logger.Error("cannot load the memory image", zap.Error(err))
		atexit.Exit(exitFatal)
	}
	logger.Info("memory image loaded",
		zap.String("path", memoryPath),
		zap.Uint64("words", storage.Size()))

	out := bufio.NewWriter(os.Stdout)
	atexit.Register(func() { _ = out.Flush() })

	session, monitor := buildSession(cmd, logger, storage, out)

	err = session.Run(traceFile)
	if err != nil {
		_ = out.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = session.Terminate()
		atexit.Exit(exitFatal)
	}

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		session.PrintSummary(out)
	}

	_ = out.Flush()

	if err := session.Terminate(); err != nil {
		logger.Error("cannot close the recording", zap.Error(err))
		atexit.Exit(exitFatal)
	}

	holdMonitor(cmd, monitor)
}

func buildSession(
	cmd *cobra.Command,
	logger *zap.Logger,
	storage *mem.Storage,
	out *bufio.Writer,
) (*simulation.Session, *monitoring.Monitor) {
	backingStorePath := settingOrEnv(cmd, "backing-store",
		"MMUSIM_BACKING_STORE", defaultBackingStore)
	tlbEntries, _ := cmd.Flags().GetInt("tlb-entries")
	if err := checkTLBEntries(tlbEntries); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(exitFatal)
	}

	b := simulation.MakeBuilder().
		WithMemory(storage).
		WithBackingStore(backingstore.NewFileStore(backingStorePath)).
		WithNumTLBEntries(tlbEntries).
		WithOutput(out).
		WithLogger(logger)

	if noPremap, _ := cmd.Flags().GetBool("no-premap"); noPremap {
		b = b.WithoutImagePremap()
	}

	if name, _ := cmd.Flags().GetString("record"); name != "" {
		b = withRecording(b, name)
		logger.Info("recording translations",
			zap.String("path", name+".sqlite3"))
	}

	var monitor *monitoring.Monitor
	if on, _ := cmd.Flags().GetBool("monitor"); on {
		port, _ := cmd.Flags().GetInt("monitor-port")
		monitor = monitoring.NewMonitor().
			WithLogger(logger).
			WithPortNumber(port)
		b = b.WithMonitor(monitor)
	}

	session := b.Build("MMUSim")

	if monitor != nil {
		startMonitor(cmd, logger, monitor)
	}

	return session, monitor
}

func checkTLBEntries(n int) error {
	if n < 1 {
		return fmt.Errorf("--tlb-entries must be at least 1, got %d", n)
	}

	return nil
}

// withRecording records every translation into name+".sqlite3". Translations
// get globally unique IDs so that rows from several runs can be merged.
func withRecording(b simulation.Builder, name string) simulation.Builder {
	return b.
		WithDataRecorder(datarecording.New(name)).
		WithIDGenerator(sim.NewXIDGenerator())
}

func startMonitor(
	cmd *cobra.Command,
	logger *zap.Logger,
	monitor *monitoring.Monitor,
) {
	url, err := monitor.StartServer()
	if err != nil {
		logger.Error("cannot start the monitoring server", zap.Error(err))
		atexit.Exit(exitFatal)
	}

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	if open, _ := cmd.Flags().GetBool("open-browser"); open {
		if err := monitor.OpenInBrowser(); err != nil {
			logger.Warn("cannot open the browser", zap.Error(err))
		}
	}
}

func holdMonitor(cmd *cobra.Command, monitor *monitoring.Monitor) {
	hold, _ := cmd.Flags().GetBool("hold")
	if monitor == nil || !hold {
		return
	}

	fmt.Fprintf(os.Stderr,
		"Trace completed, monitoring server still at %s. "+
			"Press Ctrl+C to exit.\n", monitor.URL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		5*time.Second)
	defer cancel()

	_ = monitor.StopServer(shutdownCtx)
}
