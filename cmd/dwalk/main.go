// Package main provides the entry point for the dwalk CLI tool.
//
// dwalk performs a distributed parallel filesystem traversal: a fixed set
// of peers cooperatively walk one or more directory trees via
// work-stealing, with nonblocking distributed termination detection, and
// optionally archive every traversed file into rotating per-peer tar
// containers.
//
// Usage:
//
//	dwalk [flags] [paths...]
//
// Examples:
//
//	dwalk .
//	dwalk --peers 8 /data /backup
//	dwalk --config dwalk.yaml --no-archive .
package main

import (
	"log"
	"os"

	"github.com/otuschhoff/dwalk/cmd/dwalk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}
