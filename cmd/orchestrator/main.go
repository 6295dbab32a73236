// Command orchestrator is the single binary that runs either role of the
// cluster: the orchestrator that owns storage, task dispatch and the HTTP
// API, or a worker node that only answers inference requests. Which role a
// given invocation of `run` takes is decided entirely by the shape of the
// config file on disk, mirroring the original implementation's single
// Config enum.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "orchestrator",
		Short: "Run or scaffold an Eve orchestrator/node",
	}
	root.AddCommand(newInitCmd())
	root.AddCommand(newCfgNodeCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newTestRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
