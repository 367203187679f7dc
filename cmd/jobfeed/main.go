package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pders01/jobfeed/internal/debuglog"
)

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	_ = debuglog.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
