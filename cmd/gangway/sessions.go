package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List locally cached onboarding sessions",
	Long:  `Scans the local cache and lists every session scope with its cached step payloads, completion markers, and pending background writes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSessions(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

type sessionSummary struct {
	steps     int
	completed int
	pending   int
}

func runSessions(cmd *cobra.Command) error {
	store := newStore(cmd)

	keys, err := store.Keys(context.Background(), "onboarding:")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No cached sessions.")
		return nil
	}

	summaries := make(map[string]*sessionSummary)
	for _, key := range keys {
		rest := strings.TrimPrefix(key, "onboarding:")
		scope, kind, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		s := summaries[scope]
		if s == nil {
			s = &sessionSummary{}
			summaries[scope] = s
		}
		switch {
		case strings.HasPrefix(kind, "step:"):
			s.steps++
		case strings.HasPrefix(kind, "completed:"):
			s.completed++
		case strings.HasPrefix(kind, "outbox:"):
			s.pending++
		}
	}

	scopes := make([]string, 0, len(summaries))
	for scope := range summaries {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	for _, scope := range scopes {
		s := summaries[scope]
		fmt.Printf("%s\t%d step payload(s), %d completed, %d pending sync\n",
			scope, s.steps, s.completed, s.pending)
	}
	return nil
}
