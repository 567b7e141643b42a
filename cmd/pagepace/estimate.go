package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
	"github.com/verte-zerg/pagepace/internal/store"
)

var (
	predictPages int

	goalBy    string
	goalDocs  []string
	goalLabel string
)

func newEstimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [doc-id]",
		Short: "Estimate time to finish a document, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEstimateCmd,
	}
}

func runEstimateCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if len(args) == 0 {
		return printResult(cmd, "reading estimates", a.predictor.EstimateAll(ctx), stats.RenderPortfolio)
	}
	id, err := a.store.ResolveDocumentID(ctx, args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, "this document", a.predictor.EstimateCompletion(ctx, id), stats.RenderEstimate)
}

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <doc-id>",
		Short: "Predict how long the next N pages take",
		Args:  cobra.ExactArgs(1),
		RunE:  runPredictCmd,
	}
	cmd.Flags().IntVar(&predictPages, "pages", 0, "pages to read")
	if err := cmd.MarkFlagRequired("pages"); err != nil {
		panic(err)
	}
	return cmd
}

func runPredictCmd(cmd *cobra.Command, args []string) error {
	if predictPages <= 0 {
		return fmt.Errorf("--pages must be > 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	id, err := a.store.ResolveDocumentID(ctx, args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, "a session prediction", a.predictor.PredictSession(ctx, id, predictPages), stats.RenderPrediction)
}

func newGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Check and save reading deadlines",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether documents can be finished by a date",
		Args:  cobra.NoArgs,
		RunE:  runGoalCheckCmd,
	}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Save a reading deadline",
		Args:  cobra.NoArgs,
		RunE:  runGoalAddCmd,
	}
	for _, c := range []*cobra.Command{checkCmd, addCmd} {
		c.Flags().StringVar(&goalBy, "by", "", "target date (YYYY-MM-DD)")
		c.Flags().StringSliceVar(&goalDocs, "doc", nil, "document IDs (default: all documents)")
		if err := c.MarkFlagRequired("by"); err != nil {
			panic(err)
		}
	}
	addCmd.Flags().StringVar(&goalLabel, "label", "", "goal label")

	cmd.AddCommand(checkCmd)
	cmd.AddCommand(addCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved goals with their feasibility",
		Args:  cobra.NoArgs,
		RunE:  runGoalListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a saved goal",
		Args:  cobra.ExactArgs(1),
		RunE:  runGoalRmCmd,
	})
	return cmd
}

func runGoalCheckCmd(cmd *cobra.Command, _ []string) error {
	target, err := parseDateFlag("by", goalBy)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	ids, err := resolveDocumentIDs(ctx, a.store, goalDocs)
	if err != nil {
		return err
	}
	return printResult(cmd, "this goal", a.goals.Evaluate(ctx, target, ids), stats.RenderFeasibility)
}

func runGoalAddCmd(cmd *cobra.Command, _ []string) error {
	target, err := parseDateFlag("by", goalBy)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	ids, err := resolveDocumentIDs(ctx, a.store, goalDocs)
	if err != nil {
		return err
	}
	goal, err := a.store.AddGoal(ctx, model.Goal{
		Label:       strings.TrimSpace(goalLabel),
		TargetDate:  target,
		DocumentIDs: ids,
	})
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved goal %s for %s\n", goal.ID, target.Format(dateFlagLayout))
	return err
}

func runGoalListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	goals, err := a.store.Goals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load goals: %w", err)
	}
	if len(goals) == 0 {
		logErrln("no goals saved yet")
		return nil
	}
	for _, g := range goals {
		err := printResult(cmd, "goal "+g.ID, a.goals.Evaluate(ctx, g.TargetDate, g.DocumentIDs),
			func(w io.Writer, f model.FeasibilityResult) error {
				return stats.RenderGoal(w, g, f)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func runGoalRmCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteGoal(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove goal: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed goal %s\n", args[0])
	return err
}

func resolveDocumentIDs(ctx context.Context, st *store.Store, prefixes []string) ([]string, error) {
	ids := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		id, err := st.ResolveDocumentID(ctx, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
