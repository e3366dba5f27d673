package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var (
	askModel     string
	askKnowledge bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the indexed document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		history := []domain.Message{{Role: domain.RoleUser, Content: strings.Join(args, " ")}}
		out := cmd.OutOrStdout()
		for frag, err := range a.service.Respond(cmd.Context(), history, askModel, askKnowledge) {
			if err != nil {
				fmt.Fprintln(out)
				return fmt.Errorf("answer failed: %w", err)
			}
			fmt.Fprint(out, frag)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "Ollama model (default from config)")
	askCmd.Flags().BoolVarP(&askKnowledge, "knowledge", "k", false, "Let the model add its own knowledge to the document context")
	rootCmd.AddCommand(askCmd)
}
