package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
	"github.com/verte-zerg/pagepace/internal/tui"
)

const defaultSessionLimit = 20

var (
	readMode    string
	readMinutes int

	sessionStart     string
	sessionMinutes   float64
	sessionPages     int
	sessionType      string
	sessionStartPage int
	sessionDoc       string
	sessionLimit     int
)

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <doc-id>",
		Short: "Track a reading session",
		Args:  cobra.ExactArgs(1),
		RunE:  runReadCmd,
	}
	cmd.Flags().StringVar(&readMode, "mode", string(model.SessionRegular), "timer mode: pomodoro, sprint, regular or custom")
	cmd.Flags().IntVar(&readMinutes, "minutes", 0, "custom timer length in minutes")
	return cmd
}

func parseMode(value string) (model.SessionType, error) {
	mode := model.SessionType(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case model.SessionPomodoro, model.SessionSprint, model.SessionRegular, tui.SessionCustom:
		return mode, nil
	default:
		return "", fmt.Errorf("--mode must be one of pomodoro, sprint, regular, custom")
	}
}

func runReadCmd(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(readMode)
	if err != nil {
		return err
	}
	if readMinutes < 0 {
		return fmt.Errorf("--minutes must be > 0")
	}
	if cmd.Flags().Changed("minutes") && !cmd.Flags().Changed("mode") {
		mode = tui.SessionCustom
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	trackerCfg, err := a.cfg.TrackerSettings()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	id, err := a.store.ResolveDocumentID(ctx, args[0])
	if err != nil {
		return err
	}
	doc, err := a.store.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	open, err := a.store.OpenSessions(ctx)
	if err != nil {
		logErrf("failed to check unfinished sessions: %v\n", err)
	} else if len(open) > 0 {
		logErrf("%d unfinished session(s) are left out of analytics\n", len(open))
	}

	var today float64
	if res := a.agg.DailyStats(ctx, time.Time{}); res.OK() {
		today = res.Value.TotalMinutes
	}

	tracker := tui.NewModel(a.store, tui.Options{
		Document:     doc,
		Mode:         mode,
		Minutes:      readMinutes,
		Config:       trackerCfg,
		TodayMinutes: today,
		Pace:         a.predictor.Speed(),
		Clock:        a.clock,
		Logger:       a.log,
	})
	if err := tracker.Start(ctx); err != nil {
		return err
	}
	program := tea.NewProgram(tracker, tea.WithAltScreen())
	_, runErr := program.Run()
	summary := tracker.Finish()
	if runErr != nil {
		if summary.Err != nil {
			logErrf("%v\n", summary.Err)
		}
		return fmt.Errorf("failed to run tracker: %w", runErr)
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary(summary)); err != nil {
		return err
	}
	return summary.Err
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Record or list reading sessions",
	}

	addCmd := &cobra.Command{
		Use:   "add <doc-id>",
		Short: "Record a finished session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionAddCmd,
	}
	addCmd.Flags().StringVar(&sessionStart, "start", "", "start time (RFC3339)")
	addCmd.Flags().Float64Var(&sessionMinutes, "minutes", 0, "duration in minutes")
	addCmd.Flags().IntVar(&sessionPages, "pages", 0, "pages read")
	addCmd.Flags().StringVar(&sessionType, "type", string(model.SessionRegular), "session type")
	addCmd.Flags().IntVar(&sessionStartPage, "start-page", 0, "first page (default: current page)")
	for _, name := range []string{"start", "minutes", "pages"} {
		if err := addCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionListCmd,
	}
	listCmd.Flags().StringVar(&sessionDoc, "doc", "", "only sessions of this document")
	listCmd.Flags().IntVar(&sessionLimit, "limit", defaultSessionLimit, "maximum sessions to show")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(listCmd)
	return cmd
}

func runSessionAddCmd(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.RFC3339, sessionStart)
	if err != nil {
		return fmt.Errorf("invalid --start value: %w", err)
	}
	if sessionMinutes <= 0 {
		return fmt.Errorf("--minutes must be > 0")
	}
	if sessionPages < 0 {
		return fmt.Errorf("--pages must be >= 0")
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
	doc, err := a.store.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	startPage := doc.Page()
	if cmd.Flags().Changed("start-page") {
		startPage = sessionStartPage
	}
	if startPage < 1 || startPage > doc.TotalPages {
		return fmt.Errorf("--start-page must be between 1 and %d", doc.TotalPages)
	}
	end := start.Add(time.Duration(sessionMinutes * float64(time.Minute)))
	minutes := sessionMinutes
	session := model.ReadingSession{
		DocumentID:  id,
		StartedAt:   start,
		EndedAt:     &end,
		DurationMin: &minutes,
		PagesRead:   sessionPages,
		StartPage:   startPage,
		EndPage:     min(startPage+sessionPages, doc.TotalPages),
		Type:        model.SessionType(strings.TrimSpace(sessionType)),
	}
	sid, err := a.store.InsertSession(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recorded session %d: %d pages in %.1f min\n", sid, sessionPages, minutes)
	return err
}

func runSessionListCmd(cmd *cobra.Command, _ []string) error {
	if sessionLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	docs, err := a.store.AllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	titles := make(map[string]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Title
	}

	var sessions []model.ReadingSession
	if sessionDoc != "" {
		id, err := a.store.ResolveDocumentID(ctx, sessionDoc)
		if err != nil {
			return err
		}
		sessions, err = a.store.SessionsForDocument(ctx, id, sessionLimit)
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
	} else {
		open, err := a.store.OpenSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to load open sessions: %w", err)
		}
		closed, err := a.store.RecentSessions(ctx, sessionLimit)
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
		sessions = append(open, closed...)
	}
	if len(sessions) == 0 {
		logErrln("no sessions recorded yet")
		return nil
	}
	return stats.RenderSessions(cmd.OutOrStdout(), sessions, titles)
}
