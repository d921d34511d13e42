package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docagent/internal/adapters/driving/watch"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

var watchScan bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep the index in step with a directory",
	Long: `Watch a directory tree and update the index as files change.

Created or modified files are re-indexed, replacing their previous pages.
Removed or renamed files have their pages removed. Hidden files and
directories are ignored. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchScan, "scan", true, "index files already in the directory before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireIngest(); err != nil {
		return err
	}
	if err := requireIndex(); err != nil {
		return err
	}
	dir := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchScan {
		scanDirectory(ctx, cmd, dir)
	}

	w := watch.New(dir, ingestService, indexService, watch.WithReporter(func(a watch.Applied) {
		switch {
		case a.Err != nil:
			cmd.PrintErrf("%s %s: %v\n", a.Change.Type, a.Change.Path, a.Err)
		default:
			cmd.Printf("%s %s: %s\n", a.Change.Type, a.Change.Path, a.Result.Message)
		}
	}))

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	return w.Run(ctx)
}

// scanDirectory indexes supported files not yet in the index. Already
// indexed files are left alone.
func scanDirectory(ctx context.Context, cmd *cobra.Command, dir string) {
	files, err := collectFiles([]string{dir})
	if err != nil {
		cmd.PrintErrf("scan: %v\n", err)
		return
	}
	var added int
	for _, path := range files {
		if ctx.Err() != nil {
			return
		}
		res, err := ingestService.IngestFile(ctx, path, driving.IngestOptions{})
		if err != nil {
			cmd.PrintErrf("scan %s: %v\n", path, err)
			continue
		}
		if res.OK {
			added++
		}
	}
	cmd.Printf("Scanned %d files, indexed %d new\n", len(files), added)
}
