// Command taskplan schedules flexible tasks into the free time around fixed
// calendar events.
package main

import (
	"context"
	"os"

	"github.com/harrisonrobin/taskplan/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
