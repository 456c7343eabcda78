// @title srvadm API
// @version 1.0
// @description IP, role and host inventory for a server fleet.
// @BasePath /
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hiroakis/host-management-app/internal/commands"
	"github.com/hiroakis/host-management-app/internal/version"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	version.GitCommit = GitCommit

	if err := commands.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
