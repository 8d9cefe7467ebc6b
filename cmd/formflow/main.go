package main

import (
	"log"
	"os"
)

// Version information (set via ldflags)
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags)
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
