package main

import (
	"fmt"
	"net/http"

	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/spf13/cobra"
)

func newAnswerCmd() *cobra.Command {
	var (
		profileName string
		session     string
		queryIDHex  string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "answer",
		Short: "Print the current ranked responses for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles()
			if err != nil {
				return err
			}
			profile, err := profiles.get(profileName)
			if err != nil {
				return err
			}

			var id types.QueryId
			if queryIDHex != "" {
				id, err = types.QueryIdFromHex(queryIDHex)
				if err != nil {
					return fmt.Errorf("evectl: parsing --query-id: %w", err)
				}
			} else {
				var ok bool
				id, ok = profile.sessionQueryID(session)
				if !ok {
					return fmt.Errorf("evectl: no query recorded for session %q; pass --query-id", session)
				}
			}

			c := profile.client()
			var query types.Query
			if err := c.do(cmd.Context(), http.MethodGet, "/answer/"+id.String(), nil, "", &query); err != nil {
				return err
			}
			printAnswer(query, jsonOut)
			return nil
		},
	}

	profileFlag(cmd, &profileName)
	cmd.Flags().StringVarP(&session, "session", "s", defaultSession, "session (chat) name to resolve the query from")
	cmd.Flags().StringVarP(&queryIDHex, "query-id", "q", "", "explicit query id; overrides --session")
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "print the raw ranked responses as JSON")

	return cmd
}
