package main

import (
	"fmt"
	"os"

	fitcommon "github.com/cwbudde/algo-epicycle/internal/fitcommon"
)

func clamp(v, lo, hi float64) float64 {
	return fitcommon.Clamp(v, lo, hi)
}

func parseWorkersFlag(raw string) (int, error) {
	return fitcommon.ParseWorkers(raw)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
