package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/pagepace/internal/docsource"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
)

var (
	docTitle string
	docPages int
)

func newDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage tracked documents",
	}

	addCmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Track a PDF",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocAddCmd,
	}
	addCmd.Flags().StringVar(&docTitle, "title", "", "title (default: PDF metadata or file name)")
	addCmd.Flags().IntVar(&docPages, "pages", 0, "page count (default: read from the PDF)")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List documents with progress",
		Args:  cobra.NoArgs,
		RunE:  runDocListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "page <id> <page>",
		Short: "Set the current page",
		Args:  cobra.ExactArgs(2),
		RunE:  runDocPageCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a document and its sessions",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocRmCmd,
	})
	return cmd
}

func runDocAddCmd(cmd *cobra.Command, args []string) error {
	if docPages < 0 {
		return fmt.Errorf("--pages must be > 0")
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := docsource.Inspect(path)
	if err != nil {
		if docPages == 0 {
			return fmt.Errorf("failed to read %s: %w (pass --pages to add it anyway)", path, err)
		}
		info = docsource.Info{Path: path, Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	}
	if docTitle != "" {
		info.Title = docTitle
	}
	if docPages > 0 {
		info.Pages = docPages
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := a.store.AddDocument(cmd.Context(), model.Document{
		Title:      info.Title,
		Path:       info.Path,
		TotalPages: info.Pages,
	})
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q (%d pages)\n", doc.ID, doc.Title, doc.TotalPages)
	return err
}

func runDocListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	return printResult(cmd, "documents", a.agg.AllDocumentAnalytics(cmd.Context()), stats.RenderDocuments)
}

func runDocPageCmd(cmd *cobra.Command, args []string) error {
	page, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid page %q: %w", args[1], err)
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
	if err := a.store.UpdateProgress(ctx, id, page); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Now on page %d\n", page)
	return err
}

func runDocRmCmd(cmd *cobra.Command, args []string) error {
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
	if err := a.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
	return err
}
