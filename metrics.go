package main

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/udaykr117/smartsched/internal/model"
	"github.com/udaykr117/smartsched/internal/store"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show scheduling pass statistics",
	Long:  `Display counters for generation, reschedule and reconcile passes and the most recent pass history.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			log.Fatalf("Failed to get limit flag: %v", err)
		}
		stats, err := st.GetPassStats(cmd.Context(), time.Now())
		if err != nil {
			log.Fatalf("Failed to get pass stats: %v", err)
		}
		counters, err := st.GetAllMetrics(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to get metrics: %v", err)
		}
		passes, err := st.GetRecentPasses(cmd.Context(), limit)
		if err != nil {
			log.Fatalf("Failed to get recent passes: %v", err)
		}

		printPassStats(stats)
		fmt.Println()
		printCounters(counters)
		fmt.Println()
		printPasses(passes)
	},
}

func printPassStats(stats *store.PassStats) {
	fmt.Println("Scheduling Passes")
	fmt.Println("=================")
	fmt.Printf("Total Passes:      %d\n", stats.TotalPasses)
	fmt.Printf("Failed Passes:     %d\n", stats.FailedPasses)
	fmt.Printf("Success Rate:      %.1f%%\n", stats.SuccessRate)
	fmt.Printf("Entries Scheduled: %d\n", stats.EntriesScheduled)
	fmt.Printf("Entries Completed: %d\n", stats.EntriesCompleted)
	fmt.Printf("Jobs Deferred:     %d\n", stats.JobsDeferred)
	fmt.Printf("Passes (24h):      %d\n", stats.Recent24hCount)
	fmt.Printf("Avg Duration (24h): %.0fms\n", stats.AvgDurationMs)
}

func printCounters(counters map[string]int64) {
	if len(counters) == 0 {
		return
	}
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%-24s %s\n", "COUNTER", "VALUE")
	fmt.Println(strings.Repeat("-", 40))
	for _, k := range keys {
		fmt.Printf("%-24s %d\n", k, counters[k])
	}
}

func printPasses(passes []model.PassRecord) {
	if len(passes) == 0 {
		fmt.Println("No passes recorded")
		return
	}
	fmt.Printf("%-11s %-20s %-8s %-7s %-6s %-8s %s\n", "KIND", "STARTED", "DURATION", "RESULT", "COUNT", "DEFERRED", "DETAIL")
	fmt.Println(strings.Repeat("-", 100))
	for _, p := range passes {
		result := "ok"
		detail := p.Message
		if !p.Success {
			result = "failed"
			detail = p.Error
		}
		fmt.Printf("%-11s %-20s %-8s %-7s %-6d %-8d %s\n",
			string(p.Kind),
			p.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%dms", p.DurationMs),
			result,
			p.Count,
			p.Deferred,
			truncate(detail, 40),
		)
	}
}

func init() {
	metricsCmd.Flags().IntP("limit", "l", 10, "Number of recent passes to show")
}
