package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addSource    sourceFlags
	addWorkspace string
	addDesc      string
)

var addCmd = &cobra.Command{
	Use:   "add <source>",
	Short: "Profile a dataset and add it to a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addWorkspace == "" {
			return fmt.Errorf("--workspace is required")
		}
		ds, err := openSource(cmd.Context(), args[0], &addSource)
		if err != nil {
			return err
		}
		return attachDataset(cmd, addWorkspace, ds, addDesc, baseReportOptions())
	},
}

var removeWorkspace string

var removeCmd = &cobra.Command{
	Use:   "remove <dataset-id>",
	Short: "Remove a dataset from a workspace by id or unique id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if removeWorkspace == "" {
			return fmt.Errorf("--workspace is required")
		}
		w, err := loadWorkspace(removeWorkspace)
		if err != nil {
			return err
		}
		d, err := w.Get(args[0])
		if err != nil {
			return err
		}
		if err := w.Remove(d.ID); err != nil {
			return err
		}
		if err := w.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s from workspace '%s'\n", d.Name, w.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addSourceFlags(addCmd, &addSource)
	addCmd.Flags().StringVarP(&addWorkspace, "workspace", "w", "", "workspace name")
	addCmd.Flags().StringVar(&addDesc, "desc", "", "dataset description")

	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeWorkspace, "workspace", "w", "", "workspace name")
}
