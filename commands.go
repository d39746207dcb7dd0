package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/udaykr117/smartsched/internal/model"
	"github.com/udaykr117/smartsched/internal/scheduler"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage the job queue",
}

var jobAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a job to the queue",
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		in := model.JobInput{}
		in.ID, _ = flags.GetString("id")
		in.Name, _ = flags.GetString("name")
		in.Time, _ = flags.GetInt("hours")
		in.DueDate, _ = flags.GetString("due")
		in.Priority, _ = flags.GetString("priority")
		in.Machine, _ = flags.GetString("machine")
		in.Skill, _ = flags.GetString("skill")

		job, err := in.ToJob()
		if err != nil {
			log.Fatalf("Invalid job: %v", err)
		}
		if err := st.CreateJob(cmd.Context(), &job); err != nil {
			log.Fatalf("Failed to add job: %v", err)
		}
		fmt.Printf("Job added successfully: %s\n", job.ID)

		if generate, _ := flags.GetBool("generate"); generate {
			printResult("Schedule generated", newEngine().Generate(cmd.Context()))
		}
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	Run: func(cmd *cobra.Command, args []string) {
		pendingOnly, err := cmd.Flags().GetBool("pending")
		if err != nil {
			log.Fatalf("Failed to get pending flag: %v", err)
		}

		var jobs []model.Job
		if pendingOnly {
			jobs, err = st.PendingJobs(cmd.Context(), settings.Scheduling.SkipScheduled)
		} else {
			jobs, err = st.ListJobs(cmd.Context())
		}
		if err != nil {
			log.Fatalf("Failed to get jobs: %v", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return
		}

		fmt.Printf("%-14s %-20s %-6s %-8s %-17s %-12s %-12s\n", "ID", "NAME", "HOURS", "PRIORITY", "DUE", "MACHINE", "SKILL")
		fmt.Println(strings.Repeat("-", 95))
		for _, j := range jobs {
			fmt.Printf("%-14s %-20s %-6d %-8s %-17s %-12s %-12s\n",
				j.ID,
				truncate(j.Name, 20),
				j.ProcessingTime,
				string(j.Priority),
				formatTime(j.DueDate),
				truncate(j.RequiredMachine, 12),
				truncate(j.RequiredSkill, 12),
			)
		}
	},
}

var machineCmd = &cobra.Command{
	Use:   "machine",
	Short: "Manage machines",
}

var machineAddCmd = &cobra.Command{
	Use:   "add id name",
	Short: "Add or update a machine",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		m, err := model.MachineInput{ID: args[0], Name: args[1], Status: status}.ToMachine()
		if err != nil {
			log.Fatalf("Invalid machine: %v", err)
		}
		if err := st.UpsertMachine(cmd.Context(), m); err != nil {
			log.Fatalf("Failed to save machine: %v", err)
		}
		fmt.Printf("Machine saved: %s (%s, %s)\n", m.ID, m.Name, m.Status)
	},
}

var machineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List machines",
	Run: func(cmd *cobra.Command, args []string) {
		if res := newEngine().SyncStatus(cmd.Context()); !res.Success {
			log.Printf("Warning: status sync failed: %s", res.Error)
		}
		machines, err := st.ListMachines(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to get machines: %v", err)
		}
		if len(machines) == 0 {
			fmt.Println("No machines found")
			return
		}
		fmt.Printf("%-14s %-24s %-12s\n", "ID", "NAME", "STATUS")
		fmt.Println(strings.Repeat("-", 52))
		for _, m := range machines {
			fmt.Printf("%-14s %-24s %-12s\n", m.ID, truncate(m.Name, 24), string(m.Status))
		}
	},
}

var machineSetStatusCmd = &cobra.Command{
	Use:   "set-status id status",
	Short: "Change a machine's status (Available, Busy, Breakdown, Maintenance)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := st.SetMachineStatus(cmd.Context(), args[0], model.MachineStatus(args[1])); err != nil {
			log.Fatalf("Failed to set machine status: %v", err)
		}
		fmt.Printf("Machine %s is now %s\n", args[0], args[1])
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage workers",
}

var workerAddCmd = &cobra.Command{
	Use:   "add id name",
	Short: "Add or update a worker",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		in := model.WorkerInput{ID: args[0], Name: args[1]}
		in.Skill, _ = flags.GetString("skill")
		in.Shift, _ = flags.GetString("shift")
		in.Status, _ = flags.GetString("status")
		w, err := in.ToWorker()
		if err != nil {
			log.Fatalf("Invalid worker: %v", err)
		}
		if err := st.UpsertWorker(cmd.Context(), w); err != nil {
			log.Fatalf("Failed to save worker: %v", err)
		}
		fmt.Printf("Worker saved: %s (%s, skills: %s, %s shift)\n", w.ID, w.Name, w.Skill, w.Shift)
	},
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workers",
	Run: func(cmd *cobra.Command, args []string) {
		if res := newEngine().SyncStatus(cmd.Context()); !res.Success {
			log.Printf("Warning: status sync failed: %s", res.Error)
		}
		workers, err := st.ListWorkers(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to get workers: %v", err)
		}
		if len(workers) == 0 {
			fmt.Println("No workers found")
			return
		}
		fmt.Printf("%-10s %-20s %-24s %-6s %-10s\n", "ID", "NAME", "SKILLS", "SHIFT", "STATUS")
		fmt.Println(strings.Repeat("-", 74))
		for _, w := range workers {
			fmt.Printf("%-10s %-20s %-24s %-6s %-10s\n",
				w.ID, truncate(w.Name, 20), truncate(w.Skill, 24), string(w.Shift), string(w.Status))
		}
	},
}

var workerSetStatusCmd = &cobra.Command{
	Use:   "set-status id status",
	Short: "Change a worker's status (Available, Busy, Leave)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := st.SetWorkerStatus(cmd.Context(), args[0], model.WorkerStatus(args[1])); err != nil {
			log.Fatalf("Failed to set worker status: %v", err)
		}
		fmt.Printf("Worker %s is now %s\n", args[0], args[1])
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Generate and inspect the schedule",
}

var scheduleGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Assign pending jobs to machines and workers",
	Run: func(cmd *cobra.Command, args []string) {
		printResult("Schedule generated", newEngine().Generate(cmd.Context()))
	},
}

var scheduleRescheduleCmd = &cobra.Command{
	Use:   "reschedule",
	Short: "Drop every scheduled entry and plan again from now",
	Run: func(cmd *cobra.Command, args []string) {
		printResult("Rescheduled", newEngine().Reschedule(cmd.Context()))
	},
}

var scheduleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Complete finished entries and refresh machine and worker status",
	Run: func(cmd *cobra.Command, args []string) {
		printResult("Status synchronized", newEngine().SyncStatus(cmd.Context()))
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedule entries",
	Run: func(cmd *cobra.Command, args []string) {
		statusFlag, err := cmd.Flags().GetString("status")
		if err != nil {
			log.Fatalf("Failed to get status flag: %v", err)
		}
		status := model.EntryStatus(statusFlag)
		if status != "" && !status.Valid() {
			log.Fatalf("Invalid status: %s. Valid statuses are: Scheduled, Completed, Cancelled", statusFlag)
		}
		if res := newEngine().SyncStatus(cmd.Context()); !res.Success {
			log.Printf("Warning: status sync failed: %s", res.Error)
		}

		entries, err := st.ListSchedule(cmd.Context(), status)
		if err != nil {
			log.Fatalf("Failed to get schedule: %v", err)
		}
		if len(entries) == 0 {
			if statusFlag != "" {
				fmt.Printf("No schedule entries with status: %s\n", statusFlag)
			} else {
				fmt.Println("No schedule entries")
			}
			return
		}
		printSchedule(entries)
	},
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel entry-id",
	Short: "Cancel a scheduled entry; its job becomes pending again",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Fatalf("Invalid entry id: %s", args[0])
		}
		if err := st.CancelEntry(cmd.Context(), id); err != nil {
			log.Fatalf("Failed to cancel entry: %v", err)
		}
		if res := newEngine().SyncStatus(cmd.Context()); !res.Success {
			log.Printf("Warning: status sync failed: %s", res.Error)
		}
		fmt.Printf("Schedule entry %d cancelled\n", id)
	},
}

func printResult(title string, res scheduler.Result) {
	if !res.Success {
		log.Fatalf("Pass failed: %s", res.Error)
	}
	fmt.Printf("%s: %d\n", title, res.Count)
	if res.Message != "" {
		fmt.Println(res.Message)
	}
}

func printSchedule(entries []model.ScheduleEntry) {
	fmt.Printf("%-6s %-20s %-16s %-16s %-17s %-17s %-10s\n", "ENTRY", "JOB", "MACHINE", "WORKER", "START", "END", "STATUS")
	fmt.Println(strings.Repeat("-", 108))
	for _, e := range entries {
		fmt.Printf("%-6d %-20s %-16s %-16s %-17s %-17s %-10s\n",
			e.ID,
			truncate(e.JobName, 20),
			truncate(e.MachineName, 16),
			truncate(e.WorkerName, 16),
			formatTime(e.StartTime),
			formatTime(e.EndTime),
			string(e.Status),
		)
	}
}

func registerResourceCommands() {
	jobAddCmd.Flags().String("id", "", "Job ID (generated when empty)")
	jobAddCmd.Flags().StringP("name", "n", "", "Job name")
	jobAddCmd.Flags().Int("hours", 0, "Processing time in whole hours")
	jobAddCmd.Flags().String("due", "", "Due date, e.g. 2026-10-20 or 2026-10-20 17:00")
	jobAddCmd.Flags().String("priority", string(model.PriorityMedium), "Priority: High, Medium, Low")
	jobAddCmd.Flags().String("machine", "", "Required machine (ID or part of its name)")
	jobAddCmd.Flags().String("skill", "", "Required worker skill")
	jobAddCmd.Flags().Bool("generate", false, "Generate a schedule after adding the job")
	jobAddCmd.MarkFlagRequired("name")
	jobAddCmd.MarkFlagRequired("hours")
	jobAddCmd.MarkFlagRequired("due")
	jobAddCmd.MarkFlagRequired("machine")
	jobAddCmd.MarkFlagRequired("skill")
	jobListCmd.Flags().Bool("pending", false, "Only jobs waiting to be scheduled")
	jobCmd.AddCommand(jobAddCmd)
	jobCmd.AddCommand(jobListCmd)
	rootCmd.AddCommand(jobCmd)

	machineAddCmd.Flags().String("status", string(model.MachineAvailable), "Initial status")
	machineCmd.AddCommand(machineAddCmd)
	machineCmd.AddCommand(machineListCmd)
	machineCmd.AddCommand(machineSetStatusCmd)
	rootCmd.AddCommand(machineCmd)

	workerAddCmd.Flags().String("skill", "", "Comma-separated skills")
	workerAddCmd.Flags().String("shift", string(model.ShiftDay), "Shift: Day or Night")
	workerAddCmd.Flags().String("status", string(model.WorkerAvailable), "Initial status")
	workerAddCmd.MarkFlagRequired("skill")
	workerCmd.AddCommand(workerAddCmd)
	workerCmd.AddCommand(workerListCmd)
	workerCmd.AddCommand(workerSetStatusCmd)
	rootCmd.AddCommand(workerCmd)
}

func registerScheduleCommands() {
	scheduleListCmd.Flags().StringP("status", "s", "", "Filter by status (Scheduled, Completed, Cancelled)")
	scheduleCmd.AddCommand(scheduleGenerateCmd)
	scheduleCmd.AddCommand(scheduleRescheduleCmd)
	scheduleCmd.AddCommand(scheduleSyncCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleCancelCmd)
	rootCmd.AddCommand(scheduleCmd)
}
