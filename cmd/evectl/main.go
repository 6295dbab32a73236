// Command evectl is the operator/client CLI for an Eve cluster: manage
// local signing profiles, send and poll for inference requests, and
// administer the worker whitelist of a running orchestrator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "evectl",
		Short: "Client and admin CLI for an Eve orchestrator",
	}
	root.AddCommand(newAccountCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newAnswerCmd())
	root.AddCommand(newNodeCmd())
	root.AddCommand(newOrchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func profileFlag(cmd *cobra.Command, name *string) {
	cmd.Flags().StringVarP(name, "profile", "p", defaultProfile, "profile to act as")
}
