// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slide-engine/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs (list, show, export)",
	Long: `History reads the SQLite ledger that run writes after every run. Use
subcommands to list recent runs, show the groups of one run, or export the
ledger.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-32s  %-10s  %-20s  %-5s  %s\n", "Run", "State", "Started", "Pages", "Source")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-32s  %-10s  %-20s  %-5d  %s\n",
			r.RunID, r.State, r.StartedAt.Local().Format(time.DateTime), r.PageCount, r.SourcePath)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its page groups",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	printRunSummary(os.Stdout, run)
	fmt.Fprintf(os.Stdout, "\n%-5s  %-9s  %-7s  %-14s  %s\n", "Group", "Pages", "Status", "Stage", "Error")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, g := range run.Groups {
		fmt.Fprintf(os.Stdout, "%-5d  %-9s  %-7s  %-14s  %s\n",
			g.Index, fmt.Sprintf("%d-%d", g.FirstPage, g.LastPage), g.Status, g.Stage, g.Error)
	}
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run ledger to YAML or JSON",
	Long: `Export writes every recorded run, with its groups, to history.yaml or
history.json next to the ledger database, or to --out.`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if out == "" {
		out = filepath.Join(filepath.Dir(store.Path()), "history."+format)
	}

	switch format {
	case "yaml":
		err = store.ExportYAML(cmd.Context(), out)
	case "json":
		err = store.ExportJSON(cmd.Context(), out)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", out)
	return nil
}

// --- shared helpers ---

func openHistory() (*history.Store, error) {
	cfg, err := pipelineConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.DBPath)
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyShowCmd.Flags().Bool("json", false, "output the run as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "output file (default next to the database)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
