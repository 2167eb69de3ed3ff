package main

import (
	"fmt"
	"os"

	"visiond/internal/visionctl"
)

func main() {
	addr := os.Getenv("VISIONCTL_ADDR")
	if addr == "" {
		addr = "http://127.0.0.1:8080"
	}
	cfg := &visionctl.Config{Addr: addr}
	root := visionctl.BuildRootCmd(cfg, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
