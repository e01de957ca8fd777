package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(rest)
	case "connection":
		return runConnectionNoun(rest)
	case "events":
		return runEventsNoun(rest)
	case "config":
		return runConfigNoun(rest)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(rest)
	case "version":
		fmt.Printf("hookrelay version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`hookrelay - Hookdeck webhook intake and relay gateway

Usage:
  hookrelay <noun> <action> [flags]

Core Resources (Nouns):
  system       Gateway lifecycle
  connection   Hookdeck connection provisioning
  events       Publish and list events on the connection
  config       Configuration validation and integrity

System Commands:
  system start          Provision the connection and serve in foreground

Connection Commands:
  connection ensure     Upsert the configured connection and print its identifiers

Events Commands:
  events list           List connection events with full detail
  events publish        Publish an event into the connection source

Config Commands:
  config check          Validate configuration and report warnings
  config lock           Pin the config file with a BLAKE3 checksum
  config get <path>     Read one value from the resolved configuration

General:
  version               Show version information
  help                  Show this help message

Use 'hookrelay <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConnectionNoun(args []string) int {
	if len(args) < 1 {
		printConnectionNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConnectionNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "ensure":
		if hasHelpFlag(actionArgs) {
			printConnectionEnsureHelp()
			return 0
		}
		return runConnectionEnsure(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown connection action: %s\n", action)
		return 1
	}
}

func runEventsNoun(args []string) int {
	if len(args) < 1 {
		printEventsNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printEventsNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		if hasHelpFlag(actionArgs) {
			printEventsListHelp()
			return 0
		}
		return runEventsList(actionArgs)
	case "publish":
		if hasHelpFlag(actionArgs) {
			printEventsPublishHelp()
			return 0
		}
		return runEventsPublish(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown events action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "get":
		if hasHelpFlag(actionArgs) {
			printConfigGetHelp()
			return 0
		}
		return runConfigGet(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookrelay system <action>")
	fmt.Fprintln(w, "Actions: start")
}

func printConnectionNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookrelay connection <action>")
	fmt.Fprintln(w, "Actions: ensure")
}

func printEventsNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookrelay events <action> [flags]")
	fmt.Fprintln(w, "Actions: list, publish")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookrelay config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock, get")
}

func printSystemStartHelp() {
	fmt.Println("Usage: hookrelay system start [--config PATH]")
	fmt.Println("Upsert the Hookdeck connection, then serve webhooks and the local API in the foreground.")
}

func printConnectionEnsureHelp() {
	fmt.Println("Usage: hookrelay connection ensure [--config PATH] [--json]")
	fmt.Println("Create or update the configured connection and print its identifiers.")
}

func printEventsListHelp() {
	fmt.Println("Usage: hookrelay events list [--config PATH] [--status S] [--limit N] [--all-pages] [--json]")
	fmt.Println("List the connection's events, replacing each summary with its full record.")
}

func printEventsPublishHelp() {
	fmt.Println("Usage: hookrelay events publish [--config PATH] [--payload JSON]")
	fmt.Println("Publish a JSON payload (default: a sample event) into the connection source.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: hookrelay config check [--config PATH] [--strict] [--json]")
	fmt.Println("Validate configuration and report warnings.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: hookrelay config lock [--config PATH] [-v|--verbose] [--dry-run]")
	fmt.Println("Record the config file's BLAKE3 hash in .checksums next to it.")
}

func printConfigGetHelp() {
	fmt.Println("Usage: hookrelay config get <path> [--config PATH] [--json]")
	fmt.Println("Read a single value from the resolved configuration. Credentials are redacted.")
}
