package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat <form-id>",
	Short: "Fill a form interactively from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		form, err := dataStore.GetForm(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load form: %w", err)
		}
		session, err := dataStore.CreateSession(ctx, form.ID)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		chatModel, err := newChatModel(ctx)
		if err != nil {
			return err
		}
		orch := convoflow.NewOrchestrator(chatModel)

		fmt.Printf("Filling %q (session %s). Type your answers; Ctrl-D to quit.\n", form.Name, session.ID)
		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("you: ")
			input, rErr := reader.ReadString('\n')
			if rErr != nil {
				fmt.Println()
				return nil
			}
			input = strings.TrimSpace(input)
			if input == "" {
				continue
			}

			result, tErr := orch.HandleTurn(ctx, form, session, input)
			if tErr != nil {
				if ce, ok := convoflow.AsClientError(tErr); ok {
					fmt.Printf("assistant: Sorry, that didn't work: %s\n", ce.Message)
					continue
				}
				return tErr
			}

			next, aErr := convoflow.AdvanceSession(session, form, input, result, time.Now().UTC())
			if aErr != nil {
				return aErr
			}
			if pErr := persistTurn(cmd, session, next, result, form); pErr != nil {
				return pErr
			}
			session = next

			fmt.Printf("assistant: %s\n", result.Message)
			if result.IsComplete {
				fmt.Println("Form complete. Collected values:")
				for _, cf := range session.Collected {
					if field, ok := form.FieldByID(cf.FieldID); ok {
						fmt.Printf("  %s: %s\n", field.Name, cf.Value.String())
					}
				}
				return nil
			}
		}
	},
}

func persistTurn(cmd *cobra.Command, prior, next *types.Session, result *convoflow.TurnResult, form *types.FormDefinition) error {
	ctx := cmd.Context()
	for _, turn := range next.Turns[len(prior.Turns):] {
		if err := dataStore.AppendTurn(ctx, next.ID, turn); err != nil {
			return err
		}
	}
	byID := next.CollectedByFieldID()
	for name := range result.ExtractedFields {
		field, ok := form.FieldByName(name)
		if !ok {
			continue
		}
		if cf, ok := byID[field.ID]; ok {
			if err := dataStore.UpsertCollectedField(ctx, next.ID, cf); err != nil {
				return err
			}
		}
	}
	if next.Status != prior.Status {
		if err := dataStore.SetSessionStatus(ctx, next.ID, next.Status); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
