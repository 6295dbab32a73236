package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage the orchestrator's worker whitelist",
	}
	cmd.AddCommand(newNodeListCmd())
	cmd.AddCommand(newNodeAddCmd())
	cmd.AddCommand(newNodeDeleteCmd())
	return cmd
}

func newNodeListCmd() *cobra.Command {
	var (
		profileName string
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the orchestrator's known workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}
			nodes, err := profile.client().Nodes(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(nodes)
			}

			sort.Slice(nodes, func(i, j int) bool { return nodes[i].PublicKey < nodes[j].PublicKey })
			fmt.Println("Nodes:")
			for _, n := range nodes {
				addr := " - "
				if n.Address != nil {
					addr = *n.Address
				}
				fmt.Printf("   Public Key: %s\n   Address: %s\n   Connected: %t\n\n", n.PublicKey, addr, n.IsConnected)
			}
			return nil
		},
	}
	profileFlag(cmd, &profileName)
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "print as JSON")
	return cmd
}

func newNodeAddCmd() *cobra.Command {
	var (
		profileName string
		jwt         string
		pubkey      string
		address     string
		yes         bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Whitelist a worker, optionally pinning its listen address",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}

			fmt.Println("Node:")
			fmt.Printf("Public key: %s\n", pubkey)
			if address != "" {
				fmt.Printf("Address: %s\n", address)
			} else {
				fmt.Println("Address: *")
			}
			if !yes && !promptYes("Are you sure you want to add a node?") {
				return nil
			}

			var addrPtr *string
			if address != "" {
				addrPtr = &address
			}
			if err := profile.client().AddNode(cmd.Context(), jwt, pubkey, addrPtr); err != nil {
				return err
			}
			fmt.Println("The node was successfully added")
			return nil
		},
	}
	profileFlag(cmd, &profileName)
	cmd.Flags().StringVarP(&jwt, "jwt", "j", "", "the orchestrator's admin JWT secret")
	cmd.Flags().StringVarP(&pubkey, "public-key", "k", "", "the worker's public key")
	cmd.Flags().StringVarP(&address, "address", "a", "", "pinned listen multiaddr, e.g. /ip4/127.0.0.1/udp/10000/quic-v1")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("jwt")
	_ = cmd.MarkFlagRequired("public-key")
	return cmd
}

func newNodeDeleteCmd() *cobra.Command {
	var (
		profileName string
		jwt         string
		pubkey      string
		yes         bool
	)
	cmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"remove"},
		Short:   "Remove a worker from the whitelist",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}

			fmt.Println("Node:")
			fmt.Printf("Public key: %s\n", pubkey)
			if !yes && !promptYes("Are you sure you want to delete a node?") {
				return nil
			}

			if err := profile.client().RemoveNode(cmd.Context(), jwt, pubkey); err != nil {
				return err
			}
			fmt.Println("The node was successfully deleted")
			return nil
		},
	}
	profileFlag(cmd, &profileName)
	cmd.Flags().StringVarP(&jwt, "jwt", "j", "", "the orchestrator's admin JWT secret")
	cmd.Flags().StringVarP(&pubkey, "public-key", "k", "", "the worker's public key")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("jwt")
	_ = cmd.MarkFlagRequired("public-key")
	return cmd
}

func promptYes(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(line)) == "y"
}
