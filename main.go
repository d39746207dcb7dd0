package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/udaykr117/smartsched/internal/config"
	"github.com/udaykr117/smartsched/internal/logging"
	"github.com/udaykr117/smartsched/internal/scheduler"
	"github.com/udaykr117/smartsched/internal/store"
)

var (
	dataDir    string
	configFile string
	st         *store.Store
	settings   config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "smartsched",
	Short: "Job scheduler for machines and skilled workers",
	Long: `smartsched keeps a queue of manufacturing jobs, assigns each one to a matching
machine and worker, and tracks machine and worker status as the schedule runs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		dataDir, err = GetDataDir()
		if err != nil {
			log.Fatalf("Failed to get data directory: %v", err)
		}
		st, err = store.Open(dataDir)
		if err != nil {
			log.Fatalf("Failed to initialize DB: %v", err)
		}
		settings, err = loadSettings(cmd.Context(), configPath(dataDir, configFile), st, cmd.Flags())
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		logger = logging.New(os.Stderr, settings.LogLevel())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
		}
	},
}

func newEngine() *scheduler.Engine {
	return scheduler.New(st,
		scheduler.WithLogger(logger),
		scheduler.WithRecorder(st),
		scheduler.WithSkipScheduled(settings.Scheduling.SkipScheduled),
	)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resource availability and the live schedule",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if res := newEngine().SyncStatus(ctx); !res.Success {
			log.Printf("Warning: status sync failed: %s", res.Error)
		}
		d, err := st.Dashboard(ctx, time.Now())
		if err != nil {
			log.Fatalf("Failed to get dashboard: %v", err)
		}

		daemon := "stopped"
		if pid, port, err := readPIDFile(filepath.Join(dataDir, pidFileName)); err == nil && processAlive(pid) {
			daemon = fmt.Sprintf("running (PID: %d, port: %d)", pid, port)
		}

		fmt.Println("Shop Floor Status")
		fmt.Println("=================")
		fmt.Printf("Total Jobs:          %d\n", d.TotalJobs)
		fmt.Printf("Available Machines:  %d\n", d.AvailMachines)
		fmt.Printf("Available Workers:   %d\n", d.AvailWorkers)
		fmt.Printf("Machine Utilization: %s%%\n", d.MachineUtilization)
		fmt.Printf("Worker Utilization:  %s%%\n", d.WorkerUtilization)
		fmt.Printf("Daemon:              %s\n", daemon)
		fmt.Println()

		if len(d.TodaySchedule) == 0 {
			fmt.Println("No live schedule entries")
			return
		}
		printSchedule(d.TodaySchedule)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Persist configuration overrides. Keys: ` + strings.Join(config.Keys(), ", "),
}

var configSetCmd = &cobra.Command{
	Use:   "set key value",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if err := setConfig(cmd.Context(), st, key, value); err != nil {
			log.Fatalf("Failed to set config: %v", err)
		}
		fmt.Printf("Configuration '%s' set to '%s'\n", key, value)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get key",
	Short: "Get a saved configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := st.GetConfig(cmd.Context(), args[0])
		if err != nil {
			log.Fatalf("Failed to get config: %v", err)
		}
		fmt.Println(value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved configuration and effective settings",
	Run: func(cmd *cobra.Command, args []string) {
		saved, err := st.GetAllConfig(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to get config: %v", err)
		}

		fmt.Println("Saved overrides:")
		fmt.Println(strings.Repeat("=", 50))
		if len(saved) == 0 {
			fmt.Println("No configuration set")
		} else {
			keys := make([]string, 0, len(saved))
			for k := range saved {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Printf("%-20s %s\n", "KEY", "VALUE")
			fmt.Println(strings.Repeat("-", 50))
			for _, k := range keys {
				fmt.Printf("%-20s %s\n", k, saved[k])
			}
		}

		fmt.Println()
		fmt.Println("Effective settings:")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("%-20s %d\n", "port", settings.Server.Port)
		fmt.Printf("%-20s %ds\n", "reconcile-interval", settings.Reconcile.IntervalSec)
		fmt.Printf("%-20s %t\n", "auto-generate", settings.Scheduling.AutoGenerate)
		fmt.Printf("%-20s %t\n", "skip-scheduled", settings.Scheduling.SkipScheduled)
		fmt.Printf("%-20s %t\n", "inbox", settings.Inbox.Enabled)
		fmt.Printf("%-20s %s\n", "log-level", settings.Logging.Level)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon",
	Long: `Run the HTTP API, the periodic status reconciler and the inbox watcher
until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		d := NewDaemon(settings, dataDir, st, newEngine(), logger)
		if err := d.Run(); err != nil {
			log.Fatalf("Daemon failed: %v", err)
		}
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	Run: func(cmd *cobra.Command, args []string) {
		pidFile := filepath.Join(dataDir, pidFileName)
		pid, _, err := readPIDFile(pidFile)
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running")
			return
		}
		if err != nil {
			log.Fatalf("Failed to read PID file: %v", err)
		}

		process, err := os.FindProcess(pid)
		if err != nil || !processAlive(pid) {
			fmt.Println("Daemon is not running (process not found)")
			os.Remove(pidFile)
			return
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			log.Fatalf("Failed to send signal to daemon: %v", err)
		}
		fmt.Printf("Sent stop signal to daemon (PID: %d). Waiting for graceful shutdown...\n", pid)

		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if !processAlive(pid) {
				fmt.Println("Daemon stopped successfully")
				return
			}
			time.Sleep(200 * time.Millisecond)
		}
		fmt.Printf("Daemon is still shutting down (PID: %d). If it doesn't stop, you may need to send SIGKILL manually.\n", pid)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default <data>/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(metricsCmd)

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	serveCmd.Flags().IntP("port", "p", 7000, "Port for the HTTP API")
	serveCmd.Flags().Int("interval", 5, "Seconds between status reconciler runs")
	serveCmd.Flags().Bool("auto-generate", true, "Generate a schedule whenever jobs arrive")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)

	registerResourceCommands()
	registerScheduleCommands()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
