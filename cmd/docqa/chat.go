package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/tui"
)

var (
	chatModel     string
	chatKnowledge bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open the interactive chat over the indexed document.

Type /upload <file> to index a document, ctrl+k to toggle whether the model
may use its own knowledge, esc to stop an answer and ctrl+c to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		model := chatModel
		if model == "" {
			model = a.cfg.LLM.Model
		}
		m := tui.New(cmd.Context(), a.service, model, chatKnowledge)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "Ollama model (default from config)")
	chatCmd.Flags().BoolVarP(&chatKnowledge, "knowledge", "k", false, "Start with model knowledge enabled")
	rootCmd.AddCommand(chatCmd)
}
