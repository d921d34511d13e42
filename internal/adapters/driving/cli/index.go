package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
	"github.com/custodia-labs/docagent/internal/logger"
)

var (
	indexAddReplace bool
	indexClearYes   bool
	indexOutput     string
	historyLimit    int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the document index",
	Long: `Add, remove and inspect the pages stored in the embedding index.

Every mutation rebuilds the index from the surviving pages and commits it
atomically; a failed call leaves the previously persisted index in place.`,
}

var indexAddCmd = &cobra.Command{
	Use:   "add [path...]",
	Short: "Index files or directories",
	Long: `Extract, chunk and embed files into the index.

Directories are walked recursively and every supported file is indexed.
A file that is already indexed is skipped unless --replace is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexAdd,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [file]",
	Short: "Remove every page of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexRemovePageCmd = &cobra.Command{
	Use:   "remove-page [file] [page]",
	Short: "Remove one page of a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexRemovePage,
}

var indexRemoveMatchingCmd = &cobra.Command{
	Use:   "remove-matching [text]",
	Short: "Remove every page containing text",
	Long:  `Remove every page whose text contains the given text, ignoring case.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemoveMatching,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every page from the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexClear,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed files and their pages",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the persisted index for consistency",
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

var indexHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent index mutations",
	Args:  cobra.NoArgs,
	RunE:  runIndexHistory,
}

func init() {
	indexAddCmd.Flags().BoolVar(&indexAddReplace, "replace", false, "re-index files that are already indexed")
	indexClearCmd.Flags().BoolVarP(&indexClearYes, "yes", "y", false, "do not ask for confirmation")
	addOutputFlag(indexListCmd, &indexOutput)
	addOutputFlag(indexStatsCmd, &indexOutput)
	addOutputFlag(indexHistoryCmd, &indexOutput)
	indexHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")

	indexCmd.AddCommand(
		indexAddCmd,
		indexRemoveCmd,
		indexRemovePageCmd,
		indexRemoveMatchingCmd,
		indexClearCmd,
		indexListCmd,
		indexStatsCmd,
		indexVerifyCmd,
		indexHistoryCmd,
	)
	rootCmd.AddCommand(indexCmd)
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	if err := requireIngest(); err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	opts := driving.IngestOptions{Replace: indexAddReplace}
	var failed, skipped int
	for _, path := range files {
		res, err := ingestService.IngestFile(cmd.Context(), path, opts)
		switch {
		case err != nil:
			failed++
			cmd.PrintErrf("Failed %s: %v\n", path, err)
		case !res.OK:
			skipped++
			cmd.Printf("Skipped: %s\n", res.Message)
		default:
			cmd.Printf("Indexed %s (%d pages, %d vectors)\n", path, res.Affected, res.VectorCount)
		}
	}

	logger.Debug("index add: %d files, %d skipped, %d failed", len(files), skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to index", failed, len(files))
	}
	return nil
}

// collectFiles expands directories into the supported files below them.
// Explicit file arguments are passed through so unsupported types report
// an error.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if ingestService.Supports(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return files, nil
}

// resolveSource maps a path argument to the source id stored in the index.
func resolveSource(arg string) string {
	if ingestService == nil {
		return arg
	}
	id, err := ingestService.SourceID(arg)
	if err != nil {
		return arg
	}
	return id
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	res, err := indexService.RemoveDocument(cmd.Context(), resolveSource(args[0]))
	return reportMutation(cmd, res, err)
}

func runIndexRemovePage(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	page, err := strconv.Atoi(args[1])
	if err != nil || page < 1 {
		return fmt.Errorf("invalid page number %q", args[1])
	}
	res, err := indexService.RemovePage(cmd.Context(), resolveSource(args[0]), page)
	return reportMutation(cmd, res, err)
}

func runIndexRemoveMatching(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	res, err := indexService.RemoveMatching(cmd.Context(), args[0])
	return reportMutation(cmd, res, err)
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	if !indexClearYes {
		cmd.Print("Remove every page from the index? [y/N]: ")
		answer := readLine(bufio.NewReader(cmd.InOrStdin()))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			cmd.Println("Cancelled.")
			return nil
		}
	}
	res, err := indexService.RemoveAll(cmd.Context())
	return reportMutation(cmd, res, err)
}

// reportMutation prints the outcome. A mutation that was not applied, such
// as removing an unknown source, exits non-zero.
func reportMutation(cmd *cobra.Command, res domain.MutationResult, err error) error {
	if err != nil {
		return err
	}
	if !res.OK {
		return errors.New(res.Message)
	}
	cmd.Printf("%s (%d vectors)\n", res.Message, res.VectorCount)
	return nil
}

// documentEntry is the structured form of one listed source.
type documentEntry struct {
	Source string `json:"source" yaml:"source"`
	Pages  []int  `json:"pages" yaml:"pages"`
}

func runIndexList(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	listing, err := indexService.EnumerateDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	entries := make([]documentEntry, 0, len(listing))
	for _, src := range listing.Sources() {
		entries = append(entries, documentEntry{Source: src, Pages: listing[src]})
	}

	if done, err := writeStructured(cmd.OutOrStdout(), indexOutput, entries); done {
		return err
	}

	if len(entries) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{strconv.Itoa(len(e.Pages)), e.Source})
	}
	renderTable(cmd.OutOrStdout(), []string{"PAGES", "SOURCE"}, rows)
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	stats, err := indexService.GetStatistics(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	if done, err := writeStructured(cmd.OutOrStdout(), indexOutput, stats); done {
		return err
	}

	cmd.Println(headerStyle.Render("Index statistics"))
	cmd.Printf("  Documents:  %d\n", stats.TotalDocuments)
	cmd.Printf("  Pages:      %d\n", stats.TotalPages)
	cmd.Printf("  Vectors:    %d\n", stats.VectorCount)
	cmd.Printf("  Dimension:  %d\n", stats.Dimension)
	if !stats.Consistent() {
		cmd.Println(mutedStyle.Render("  warning: vector count does not match page count"))
	}
	return nil
}

func runIndexVerify(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	violations, err := indexService.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	if len(violations) == 0 {
		cmd.Println("Index OK.")
		return nil
	}
	for _, v := range violations {
		cmd.Printf("  - %s\n", v)
	}
	return fmt.Errorf("index has %d consistency violations", len(violations))
}

// historyEntry is the structured form of one journal entry.
type historyEntry struct {
	Operation   string `json:"operation" yaml:"operation"`
	Subject     string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Affected    int    `json:"affected" yaml:"affected"`
	VectorCount int    `json:"vector_count" yaml:"vector_count"`
	Generation  string `json:"generation" yaml:"generation"`
	CommittedAt string `json:"committed_at" yaml:"committed_at"`
}

func runIndexHistory(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	entries, err := indexService.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			Operation:   e.Operation,
			Subject:     e.Subject,
			Affected:    e.Affected,
			VectorCount: e.VectorCount,
			Generation:  e.Generation,
			CommittedAt: e.CommittedAt.Format(time.RFC3339),
		})
	}

	if done, err := writeStructured(cmd.OutOrStdout(), indexOutput, out); done {
		return err
	}

	if len(out) == 0 {
		cmd.Println("No mutations recorded.")
		return nil
	}
	rows := make([][]string, 0, len(out))
	for _, e := range out {
		rows = append(rows, []string{
			e.CommittedAt, e.Operation, strconv.Itoa(e.Affected), strconv.Itoa(e.VectorCount), e.Subject,
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"COMMITTED", "OPERATION", "AFFECTED", "VECTORS", "SUBJECT"}, rows)
	return nil
}
