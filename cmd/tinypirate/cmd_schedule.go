// Tiny Pirate - conversational agent dispatch core
// License: MIT

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinypirate/tinypirate/pkg/scheduler"
)

// scheduleCmd lists or toggles autonomous schedules on a running gateway.
func scheduleCmd() {
	cmd := newScheduleCmd()
	cmd.SetArgs(os.Args[2:])
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage autonomous schedules",
	}
	cmd.PersistentFlags().StringP("server", "s", "", "Gateway URL (default http://127.0.0.1:18890)")
	cmd.PersistentFlags().StringP("key", "k", "", "API key")
	cmd.AddCommand(
		newScheduleListCmd(),
		newScheduleEnableCmd(),
		newScheduleDisableCmd(),
	)
	return cmd
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all schedules",
		RunE:  runScheduleList,
	}
}

func newScheduleEnableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable <schedule_id>",
		Short: "Enable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleEnable,
	}
	cmd.Flags().Int("min", 0, "Minimum fire interval in seconds")
	cmd.Flags().Int("max", 0, "Maximum fire interval in seconds")
	return cmd
}

func newScheduleDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <schedule_id>",
		Short: "Disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleDisable,
	}
}

func scheduleClient(cmd *cobra.Command) *consoleClient {
	server, _ := cmd.Flags().GetString("server")
	apiKey, _ := cmd.Flags().GetString("key")
	return buildConsoleClient(server, apiKey)
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	client := scheduleClient(cmd)

	var snaps []scheduler.Snapshot
	if err := client.do(http.MethodGet, "/api/schedules", nil, &snaps); err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil
	}
	if len(snaps) == 0 {
		fmt.Println("No schedules configured.")
		return nil
	}
	for _, snap := range snaps {
		printSnapshot(snap)
	}
	return nil
}

func runScheduleEnable(cmd *cobra.Command, args []string) error {
	client := scheduleClient(cmd)

	req := map[string]any{"enabled": true}
	if min, _ := cmd.Flags().GetInt("min"); min > 0 {
		req["min_interval_seconds"] = min
	}
	if max, _ := cmd.Flags().GetInt("max"); max > 0 {
		req["max_interval_seconds"] = max
	}

	var snap scheduler.Snapshot
	if err := client.do(http.MethodPut, "/api/schedules/"+args[0], req, &snap); err != nil {
		fmt.Printf("✗ Schedule %s: %v\n", args[0], err)
		return nil
	}
	fmt.Printf("✓ Schedule '%s' enabled\n", snap.ID)
	printSnapshot(snap)
	return nil
}

func runScheduleDisable(cmd *cobra.Command, args []string) error {
	client := scheduleClient(cmd)

	var snap scheduler.Snapshot
	if err := client.do(http.MethodPut, "/api/schedules/"+args[0], map[string]any{"enabled": false}, &snap); err != nil {
		fmt.Printf("✗ Schedule %s: %v\n", args[0], err)
		return nil
	}
	fmt.Printf("✓ Schedule '%s' disabled\n", snap.ID)
	return nil
}

func printSnapshot(snap scheduler.Snapshot) {
	state := "○ disabled"
	if snap.Enabled {
		state = fmt.Sprintf("● %s", snap.State)
	}
	fmt.Printf("%s %s\n", state, snap.ID)
	if snap.Cron != "" {
		fmt.Printf("    cron: %s\n", snap.Cron)
	} else {
		fmt.Printf("    window: %s – %s\n", snap.MinInterval, snap.MaxInterval)
	}
	if !snap.NextFire.IsZero() {
		fmt.Printf("    next fire: %s\n", snap.NextFire.Format(time.RFC3339))
	}
	if !snap.LastFire.IsZero() {
		fmt.Printf("    last fire: %s\n", snap.LastFire.Format(time.RFC3339))
	}
}
