// Command reactivities drives the stores from the command line: list and attend
// activities, view and follow profiles, and manage the signed-in user's photos.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	cmd := newApp()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
