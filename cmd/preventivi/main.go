// Package main точка входа бота напоминаний о предложениях.
package main

import (
	"fmt"
	"os"
)

// version задаётся при сборке через -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}
