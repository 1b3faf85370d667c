//go:build validate_state
// +build validate_state

package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/store"
)

// main checks a saved pool against the state record schema, listing the servers that would be restored.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run -tags=validate_state ./tools/validate/state.go <state.json>\n")
		os.Exit(1)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "gatewayd.validate",
		Level:  hclog.Warn,
		Output: os.Stderr,
	})

	st, err := store.NewFileStore(logger, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	servers, err := st.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, srv := range servers {
		fmt.Printf("%s\t%s\t%s\n", srv.ID, srv.BaseURL(), srv.Status())
	}
	fmt.Printf("%d server(s) would be restored\n", len(servers))
}
