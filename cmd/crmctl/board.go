package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"franchise-crm/internal/pipeline"
)

func newBoard(a *app) *pipeline.Board {
	b := pipeline.NewBoard(a.api, a.session.Info().Capabilities)
	b.OnChange(func(s pipeline.State) { a.log.Debug("board state", zap.Stringer("state", s)) })
	return b
}

func printBoard(w io.Writer, cols []pipeline.Column, full bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, col := range cols {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", col.Stage.ID, col.Stage.Label, col.Count)
		if !full {
			continue
		}
		for _, l := range col.Leads {
			fmt.Fprintf(tw, "\t  %s\t%s <%s>\n", l.ID, l.FullName, l.Email)
		}
	}
	_ = tw.Flush()
}

func newBoardCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the pipeline board",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			b := newBoard(a)
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), b.Columns(), full)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&full, "leads", "l", false, "list the leads in each stage")
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "move <lead-id> <stage>",
		Short: "Move a lead to another pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			leadID, to := args[0], args[1]
			if !pipeline.Valid(to) {
				return fmt.Errorf("unknown stage %q", to)
			}
			b := newBoard(a)
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}
			if from == "" {
				cur, ok := b.StageOf(leadID)
				if !ok {
					return fmt.Errorf("lead %s is not on the board", leadID)
				}
				from = cur
			}
			if err := b.Move(cmd.Context(), leadID, from, to); err != nil {
				return err
			}
			st, _ := pipeline.Lookup(to)
			fmt.Fprintf(cmd.OutOrStdout(), "lead %s: %s -> %s\n", leadID, from, st.Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "current stage (read from the board when empty)")
	return cmd
}
