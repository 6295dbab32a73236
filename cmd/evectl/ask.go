package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		profileName string
		session     string
		clean       bool
		jsonOut     bool
		waitSeconds int
	)

	cmd := &cobra.Command{
		Use:     "ask [message]",
		Aliases: []string{"send", "question", "run", "request"},
		Short:   "Send a request and wait for the workers' evaluated responses",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if message == "" {
				return fmt.Errorf("evectl: a message is required")
			}

			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}
			key, err := profile.privateKey()
			if err != nil {
				return err
			}
			c := profile.client()
			ctx := cmd.Context()

			var history []types.History
			if !clean {
				if prevID, ok := profile.sessionQueryID(session); ok {
					thread, err := c.History(ctx, prevID)
					if err != nil {
						return fmt.Errorf("evectl: loading session history: %w", err)
					}
					for _, h := range thread {
						history = append(history, types.History{Role: roleFromString(h.Role), Content: h.Content})
					}
				}
			}

			cost, err := c.Cost(ctx)
			if err != nil {
				return fmt.Errorf("evectl: reading cost estimate: %w", err)
			}
			balance, err := c.Balance(ctx, key.PublicKey().String())
			if err != nil {
				return fmt.Errorf("evectl: reading balance: %w", err)
			}
			if balance < cost {
				return fmt.Errorf("evectl: insufficient balance to perform the operation: balance %d, maximum request cost %d", balance, cost)
			}

			req := types.Sign(key, types.AiRequest{
				Timestamp: types.Now(),
				Message:   message,
				History:   history,
				PubKey:    key.PublicKey(),
			})

			id, err := c.Query(ctx, req)
			if err != nil {
				return fmt.Errorf("evectl: sending request: %w", err)
			}
			fmt.Printf("The request has been sent. QueryID: %s\n", id)

			if err := profiles.setSession(profileName, session, id); err != nil {
				return fmt.Errorf("evectl: saving session: %w", err)
			}

			wait := 120 * time.Second
			if waitSeconds > 0 {
				wait = time.Duration(waitSeconds) * time.Second
			}
			fmt.Println("Waiting for a response...")
			query, err := c.Answer(ctx, id, wait, time.Second)
			if err != nil {
				return err
			}
			printAnswer(query, jsonOut)
			return nil
		},
	}

	profileFlag(cmd, &profileName)
	cmd.Flags().StringVarP(&session, "session", "s", defaultSession, "session (chat) name, used to chain history")
	cmd.Flags().BoolVarP(&clean, "clean", "c", false, "start a new session instead of continuing the last one")
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "print the raw ranked responses as JSON")
	cmd.Flags().IntVarP(&waitSeconds, "waiting-time", "w", 120, "response waiting time in seconds")

	return cmd
}

func roleFromString(s string) types.Role {
	switch s {
	case "assistant":
		return types.RoleAssistant
	case "system":
		return types.RoleSystem
	default:
		return types.RoleUser
	}
}

func printAnswer(query types.Query, jsonOut bool) {
	ranked := query.Ranked()
	if jsonOut {
		sort.SliceStable(ranked, func(i, j int) bool { return i < j })
		out, _ := json.MarshalIndent(ranked, "", "  ")
		fmt.Println(string(out))
		return
	}

	if len(ranked) == 0 {
		fmt.Println("No responses yet.")
		return
	}
	for _, r := range ranked {
		switch r.Kind {
		case types.KindVerified:
			fmt.Printf("[%s] relevance=%d%%\n%s\n\n", r.Verdict.Result.Inspector, r.Verdict.Result.Relevance.Value(), r.Verdict.Result.Material.Response.Message)
		case types.KindTimeout:
			fmt.Printf("[%s] timed out\n\n", r.NodeKey())
		case types.KindNodeResponse:
			fmt.Printf("[%s] awaiting evaluation\n%s\n\n", r.Response.NodeKey(), r.Response.Response.Message)
		case types.KindError:
			fmt.Printf("[%s] error: %s\n\n", r.ErrorWorker, r.ErrorMessage)
		}
	}
}
