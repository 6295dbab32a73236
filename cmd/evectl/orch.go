package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newOrchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orch",
		Short: "Inspect a running orchestrator",
	}
	cmd.AddCommand(newOrchInfoCmd())
	cmd.AddCommand(newOrchMetricsCmd())
	return cmd
}

func newOrchInfoCmd() *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the cluster's membership and listen addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}
			info, err := profile.client().Info(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("cluster info:\n  nodes: %d\n  listen addresses:\n", info.NodesCount)
			for _, addr := range info.ListenAddresses {
				fmt.Printf("    %s\n", addr)
			}
			return nil
		},
	}
	profileFlag(cmd, &profileName)
	return cmd
}

func newOrchMetricsCmd() *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Fetch the orchestrator's raw Prometheus metrics text",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}
			text, err := profile.client().Metrics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	profileFlag(cmd, &profileName)
	return cmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
