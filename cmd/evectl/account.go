package main

import (
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts", "profile", "profiles"},
		Short:   "Manage local signing profiles",
	}
	cmd.AddCommand(newAccountCreateCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountDeleteCmd())
	cmd.AddCommand(newAccountAirdropCmd())
	return cmd
}

func newAccountCreateCmd() *cobra.Command {
	var (
		rpc        string
		privateHex string
	)
	cmd := &cobra.Command{
		Use:     "create [name]",
		Aliases: []string{"new"},
		Short:   "Create a profile, generating a keypair if one isn't supplied",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := defaultProfile
			if len(args) == 1 {
				name = args[0]
			}
			if _, err := url.ParseRequestURI(rpc); err != nil {
				return fmt.Errorf("evectl: --rpc must be a valid URL: %w", err)
			}

			var key identity.PrivateKey
			if privateHex != "" {
				seed, err := hex.DecodeString(privateHex)
				if err != nil {
					return fmt.Errorf("evectl: decoding --key: %w", err)
				}
				key, err = identity.PrivateKeyFromSeed(seed)
				if err != nil {
					return err
				}
			} else {
				var err error
				key, err = identity.GenerateKey()
				if err != nil {
					return err
				}
			}

			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profiles[name] = &Profile{
				RPC:     rpc,
				Public:  key.PublicKey().String(),
				Private: hex.EncodeToString(key.Seed()),
				Session: map[string]string{},
			}
			if err := profiles.save(); err != nil {
				return err
			}

			fmt.Printf("Adding a profile:\nname: %s\nrpc: %s\npublic key: %s\nprivate key: ***\n", name, rpc, key.PublicKey())
			return nil
		},
	}
	cmd.Flags().StringVarP(&rpc, "rpc", "r", "", "the orchestrator's HTTP API URL")
	cmd.Flags().StringVarP(&privateHex, "key", "k", "", "hex-encoded private key seed; a new one is generated if omitted")
	_ = cmd.MarkFlagRequired("rpc")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally known profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println("No profiles found")
				return nil
			}
			fmt.Println("Profiles:")
			for name, p := range profiles {
				fmt.Printf("%q:\n  rpc: %s\n  public key: %s\n", name, p.RPC, p.Public)
			}
			return nil
		},
	}
}

func newAccountDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [name]",
		Aliases: []string{"remove"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			if _, ok := profiles[args[0]]; !ok {
				return fmt.Errorf("evectl: profile %q not found", args[0])
			}
			delete(profiles, args[0])
			return profiles.save()
		},
	}
}

func newAccountAirdropCmd() *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Request a faucet credit for a profile's account",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}
			balance, err := profile.client().Airdrop(cmd.Context(), profile.Public)
			if err != nil {
				return err
			}
			fmt.Printf("Balance: %d\n", balance)
			return nil
		},
	}
	profileFlag(cmd, &profileName)
	return cmd
}
