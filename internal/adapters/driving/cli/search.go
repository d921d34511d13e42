package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// snippetLength bounds the text shown per result.
const snippetLength = 160

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the nearest indexed pages by L2 distance.
Each result names the file and page it came from.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	hits, err := indexService.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

// searchResult is the JSON form of a hit.
type searchResult struct {
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Distance float32 `json:"distance"`
	Text     string  `json:"text"`
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResult{
			Source:   h.Record.Metadata.SourceID,
			Page:     h.Record.Metadata.PageNumber,
			Distance: h.Distance,
			Text:     h.Record.Text,
		})
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, h := range hits {
		cmd.Printf("  [%d] %s (page %d, distance %.4f)\n",
			i+1, h.Record.Metadata.SourceID, h.Record.Metadata.PageNumber, h.Distance)
		if snippet := snippet(h.Record.Text); snippet != "" {
			cmd.Printf("      %s\n", mutedStyle.Render(snippet))
		}
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and truncates text for display.
func snippet(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}
