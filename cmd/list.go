package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tabscope/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	listWorkspace string
	listSummary   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces, or the datasets in one workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if listWorkspace == "" {
			if listSummary {
				return fmt.Errorf("--summary needs --workspace")
			}
			return listAllWorkspaces(cmd)
		}
		w, err := loadWorkspace(listWorkspace)
		if err != nil {
			return err
		}
		if listSummary {
			s, err := w.Summary()
			if err != nil {
				return err
			}
			fmt.Fprint(out, s)
			return nil
		}
		datasets := w.List()
		if len(datasets) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		for _, d := range datasets {
			fmt.Fprintf(out, "- %s: %s [%d rows x %d columns]", shortID(d.ID), d.Name, d.Rows, d.Cols)
			if d.Description != "" {
				fmt.Fprintf(out, " (%s)", d.Description)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func listAllWorkspaces(cmd *cobra.Command) error {
	root, err := defaultWorkspacesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), workspace.FileName)); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "(no workspaces)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listWorkspace, "workspace", "w", "", "list the datasets of this workspace")
	listCmd.Flags().BoolVar(&listSummary, "summary", false, "print the combined Markdown summary of the workspace")
}
