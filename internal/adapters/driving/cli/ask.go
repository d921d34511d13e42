package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the pages nearest to the question and asks the language model
to answer from them. The answer is followed by the file and page of every
page it was given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireAnswer(); err != nil {
		return err
	}

	question := strings.Join(args, " ")
	answer, err := answerService.Ask(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(struct {
			Question string          `json:"question"`
			Answer   string          `json:"answer"`
			Sources  []domain.Source `json:"sources"`
		}{answer.Question, answer.Text, answer.Sources}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(strings.TrimSpace(answer.Text))
	if len(answer.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(headerStyle.Render("Sources:"))
	for _, src := range answer.Sources {
		cmd.Printf("- File: %s | Page: %d\n", src.File, src.Page)
	}
}
