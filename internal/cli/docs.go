package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/usecase"
)

func docsCmd(g *globalOpts) *cobra.Command {
	c := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "List, upload and manage documents",
	}

	c.AddCommand(
		docsListCmd(g),
		docsGetCmd(g),
		docsUploadCmd(g),
		docsDownloadCmd(g),
		docsStatusCmd(g),
		docsActionCmd(g, domain.ActionProcess),
		docsActionCmd(g, domain.ActionReprocess),
		docsActionCmd(g, domain.ActionDelete),
		docsBatchCmd(g, domain.ActionProcess),
		docsBatchCmd(g, domain.ActionReprocess),
		docsBatchCmd(g, domain.ActionDelete),
	)
	return c
}

func docsListCmd(g *globalOpts) *cobra.Command {
	var skip, limit int
	var status string

	c := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				docs, err := a.api.Documents.List(cmd.Context(), skip, limit)
				if err != nil {
					return err
				}
				if status != "" {
					docs = domain.FilterByStatus(docs, domain.DocumentStatus(status))
				}
				return printOut(cmd.OutOrStdout(), g.format, docs, func(w io.Writer) {
					printDocuments(w, docs)
					n := domain.CountByStatus(docs)
					fmt.Fprintf(w, "%d document(s): %d pending, %d processing, %d processed, %d failed\n",
						n.Total, n.Pending, n.Processing, n.Processed, n.Failed)
				})
			})
		},
	}

	c.Flags().IntVar(&skip, "skip", 0, "Number of documents to skip")
	c.Flags().IntVar(&limit, "limit", 100, "Maximum number of documents")
	c.Flags().StringVar(&status, "status", "", "Only show documents in this status (pending|processing|processed|failed)")
	return c
}

func docsGetCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				doc, err := a.api.Documents.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, doc, func(w io.Writer) { printDocument(w, doc) })
			})
		},
	}
}

func docsStatusCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show processing status, queue entry and result of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				rep, err := a.api.Documents.Status(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, rep, func(w io.Writer) { printStatusReport(w, rep) })
			})
		},
	}
}

type uploadOutput struct {
	Uploaded []domain.Document `json:"uploaded"`
	Failed   map[string]string `json:"failed,omitempty"`
	Skipped  []string          `json:"skipped,omitempty"`
	Rejected []string          `json:"rejected,omitempty"`
	Summary  string            `json:"summary"`
}

func docsUploadCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>...",
		Short: "Upload one or more PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]usecase.UploadFile, 0, len(args))
			for _, p := range args {
				files = append(files, usecase.FileFromPath(p))
			}

			return withApp(cmd, g, func(a *app) error {
				uc := usecase.NewUploadFiles(a.api.Documents, a.bus, a.cfg.Upload.Concurrency, a.log)
				rep, err := uc.Execute(cmd.Context(), files)

				out := uploadOutput{
					Uploaded: rep.Uploaded,
					Skipped:  rep.Skipped,
					Rejected: rep.Rejected,
					Summary:  rep.Summary(),
				}
				if len(rep.Failed) > 0 {
					out.Failed = make(map[string]string, len(rep.Failed))
					for _, f := range rep.Failed {
						out.Failed[f.Name] = domain.DetailOf(f.Err)
					}
				}
				if perr := printOut(cmd.OutOrStdout(), g.format, out, func(w io.Writer) {
					fmt.Fprintln(w, out.Summary)
					for _, d := range rep.Uploaded {
						fmt.Fprintf(w, "  + %s (id %d, %s)\n", d.Filename, d.ID, d.Status)
					}
					for _, f := range rep.Failed {
						fmt.Fprintf(w, "  ! %s: %s\n", f.Name, domain.DetailOf(f.Err))
					}
					for _, name := range rep.Rejected {
						fmt.Fprintf(w, "  - %s: not a PDF\n", name)
					}
				}); perr != nil {
					return perr
				}

				if err != nil {
					return err
				}
				if rep.Outcome() != domain.OutcomeAllSucceeded || len(rep.Rejected) > 0 {
					return errors.New(out.Summary)
				}
				return nil
			})
		},
	}
}

func docsDownloadCmd(g *globalOpts) *cobra.Command {
	var output string

	c := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the original file of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				dl, err := a.api.Documents.Download(cmd.Context(), id)
				if err != nil {
					return err
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(dl.Content)
					return err
				}

				dst := output
				if dst == "" {
					dst = dl.Filename
					if dst == "" || dst == "." || dst == "/" {
						dst = fmt.Sprintf("document-%d.pdf", id)
					}
				}
				if err := writeFileAtomic(dst, dl.Content); err != nil {
					return err
				}
				a.log.Info("cli.download", "document_id", id, "path", dst, "bytes", len(dl.Content))
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s)\n", dst, humanSize(int64(len(dl.Content))))
				return nil
			})
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "", "Destination path, or - for stdout (default: server filename)")
	return c
}

func docsActionCmd(g *globalOpts, action domain.Action) *cobra.Command {
	var priority int

	c := &cobra.Command{
		Use:   string(action) + " <id>",
		Short: actionShort[action],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				ctx := cmd.Context()
				doc, err := a.api.Documents.Get(ctx, id)
				if err != nil {
					return err
				}

				uc := usecase.NewDocumentActions(a.api.Documents, a.bus)
				p := domain.ClampPriority(priority)
				var out domain.Document
				switch action {
				case domain.ActionProcess:
					out, err = uc.Process(ctx, doc, p)
				case domain.ActionReprocess:
					out, err = uc.Reprocess(ctx, doc, p)
				case domain.ActionDelete:
					out, err = uc.Delete(ctx, doc)
				}
				if err != nil {
					return err
				}
				a.log.Info("cli.document_action", "action", string(action), "document_id", id)
				return printOut(cmd.OutOrStdout(), g.format, out, func(w io.Writer) {
					if action == domain.ActionDelete {
						fmt.Fprintf(w, "Deleted document %d (%s)\n", doc.ID, doc.Filename)
						return
					}
					fmt.Fprintf(w, "%s: document %d (%s) is now %s\n", action, out.ID, out.Filename, out.Status)
				})
			})
		},
	}

	if action != domain.ActionDelete {
		c.Flags().IntVar(&priority, "priority", domain.MinPriority,
			fmt.Sprintf("Queue priority (%d-%d)", domain.MinPriority, domain.MaxPriority))
	}
	return c
}

var actionShort = map[domain.Action]string{
	domain.ActionProcess:   "Queue a pending document for processing",
	domain.ActionReprocess: "Queue a processed or failed document again",
	domain.ActionDelete:    "Delete a document that is not being processed",
}

var batchUse = map[domain.Action]string{
	domain.ActionProcess:   "process-all",
	domain.ActionReprocess: "reprocess-failed",
	domain.ActionDelete:    "delete-all",
}

var batchShort = map[domain.Action]string{
	domain.ActionProcess:   "Process every pending document",
	domain.ActionReprocess: "Reprocess every failed document",
	domain.ActionDelete:    "Delete every document that is not being processed",
}

type batchOutput struct {
	Action     string           `json:"action"`
	Outcome    string           `json:"outcome"`
	Succeeded  []int64          `json:"succeeded"`
	Failed     map[int64]string `json:"failed,omitempty"`
	Skipped    []int64          `json:"skipped,omitempty"`
	Ineligible []int64          `json:"ineligible,omitempty"`
	Summary    string           `json:"summary"`
}

func newBatchOutput(r domain.BatchReport) batchOutput {
	out := batchOutput{
		Action:     r.Action,
		Outcome:    string(r.Outcome()),
		Succeeded:  r.Succeeded,
		Skipped:    r.Skipped,
		Ineligible: r.Ineligible,
		Summary:    r.Summary(),
	}
	if len(r.Failed) > 0 {
		out.Failed = make(map[int64]string, len(r.Failed))
		for _, f := range r.Failed {
			out.Failed[f.ID] = domain.DetailOf(f.Err)
		}
	}
	return out
}

func docsBatchCmd(g *globalOpts, action domain.Action) *cobra.Command {
	var priority, limit int
	var yes bool

	c := &cobra.Command{
		Use:   batchUse[action],
		Short: batchShort[action],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if action == domain.ActionDelete && !yes {
				return errors.New("delete-all removes documents permanently; pass --yes to confirm")
			}
			return withApp(cmd, g, func(a *app) error {
				ctx := cmd.Context()
				snapshot, err := a.api.Documents.List(ctx, 0, limit)
				if err != nil {
					return err
				}

				uc := usecase.NewBatchDocuments(a.api.Documents, a.bus,
					usecase.WithBatchLogger(a.log),
					usecase.WithPriority(priority),
				)
				var rep domain.BatchReport
				switch action {
				case domain.ActionProcess:
					rep, err = uc.ProcessPending(ctx, snapshot)
				case domain.ActionReprocess:
					rep, err = uc.ReprocessFailed(ctx, snapshot)
				case domain.ActionDelete:
					rep, err = uc.DeleteAll(ctx, snapshot)
				}

				if perr := printOut(cmd.OutOrStdout(), g.format, newBatchOutput(rep), func(w io.Writer) {
					printBatch(w, rep)
				}); perr != nil {
					return perr
				}
				if err != nil {
					return err
				}
				switch rep.Outcome() {
				case domain.OutcomeAllFailed, domain.OutcomePartial:
					return errors.New(rep.Summary())
				}
				return nil
			})
		},
	}

	c.Flags().IntVar(&limit, "limit", 100, "Number of most recent documents to consider")
	if action != domain.ActionDelete {
		c.Flags().IntVar(&priority, "priority", domain.MinPriority,
			fmt.Sprintf("Queue priority (%d-%d)", domain.MinPriority, domain.MaxPriority))
	} else {
		c.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	}
	return c
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.OpError{
			Op:   "cli.parse_id",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("invalid id %q: %w", s, domain.ErrInvalidRequest),
		}
	}
	return id, nil
}

// writeFileAtomic writes through a temp file in the destination directory.
func writeFileAtomic(dst string, b []byte) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".doclane-download-*")
	if err != nil {
		return &domain.OpError{Op: "cli.download", Kind: domain.KindExecution, Path: dst, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return &domain.OpError{Op: "cli.download", Kind: domain.KindExecution, Path: dst, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.OpError{Op: "cli.download", Kind: domain.KindExecution, Path: dst, Err: err}
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return &domain.OpError{Op: "cli.download", Kind: domain.KindExecution, Path: dst, Err: err}
	}
	return nil
}
