// Tiny Pirate - conversational agent dispatch core
// License: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tinypirate/tinypirate/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
)

const logo = "🏴‍☠️"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s tinypirate %s\n", logo, formatVersion())
	fmt.Printf("  Go: %s\n", runtime.Version())
}

func printHelp() {
	fmt.Printf("%s tinypirate - conversational agent dispatch core\n\n", logo)
	fmt.Println("Usage: tinypirate <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  gateway    Run the dispatch core and polling gateway")
	fmt.Println("  console    Interactive console against a running gateway")
	fmt.Println("  schedule   List or toggle autonomous schedules")
	fmt.Println("  version    Print version information")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TINYPIRATE_CONFIG   Config file path (default ~/.tinypirate/config.json)")
}

func getConfigPath() string {
	if path := os.Getenv("TINYPIRATE_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".tinypirate", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "gateway":
		gatewayCmd()
	case "console":
		consoleCmd()
	case "schedule":
		scheduleCmd()
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}
