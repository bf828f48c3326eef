package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/usecase"
)

func resultsCmd(g *globalOpts) *cobra.Command {
	c := &cobra.Command{
		Use:   "results",
		Short: "Review extraction results",
	}

	c.AddCommand(
		resultsListCmd(g),
		resultsGetCmd(g, false),
		resultsGetCmd(g, true),
		resultsValidateCmd(g),
		resultsUpdateCmd(g),
	)
	return c
}

func resultsListCmd(g *globalOpts) *cobra.Command {
	var skip, limit int

	c := &cobra.Command{
		Use:   "list",
		Short: "List extraction results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				results, err := a.api.Results.List(cmd.Context(), skip, limit)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, results, func(w io.Writer) { printResults(w, results) })
			})
		},
	}

	c.Flags().IntVar(&skip, "skip", 0, "Number of results to skip")
	c.Flags().IntVar(&limit, "limit", 100, "Maximum number of results")
	return c
}

// resultsGetCmd shows one result, either by result id or by the document it was extracted from.
func resultsGetCmd(g *globalOpts, byDocument bool) *cobra.Command {
	use, short := "get <result-id>", "Show one extraction result"
	if byDocument {
		use, short = "for-document <document-id>", "Show the extraction result of a document"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				var res domain.ExtractionResult
				if byDocument {
					res, err = a.api.Results.ByDocument(cmd.Context(), id)
				} else {
					res, err = a.api.Results.Get(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, res, func(w io.Writer) { printResult(w, res) })
			})
		},
	}
}

func resultsValidateCmd(g *globalOpts) *cobra.Command {
	var status, notes string

	c := &cobra.Command{
		Use:   "validate <result-id>",
		Short: "Mark a result as validated or rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := domain.ParseValidationStatus(status); err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				uc := usecase.NewReviewResult(a.api.Results, a.bus)
				res, err := uc.Execute(cmd.Context(), id, status, notes)
				if err != nil {
					return err
				}
				a.log.Info("cli.result_validated", "result_id", res.ID, "status", string(res.ValidationStatus))
				return printOut(cmd.OutOrStdout(), g.format, res, func(w io.Writer) {
					fmt.Fprintf(w, "Result %d of document %d is now %s\n", res.ID, res.DocumentID, res.ValidationStatus)
				})
			})
		},
	}

	c.Flags().StringVar(&status, "status", string(domain.ValidationValidated), "validated|rejected")
	c.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	return c
}

func resultsUpdateCmd(g *globalOpts) *cobra.Command {
	var invoiceNumber, vendor, invoiceDate, dueDate, notes string
	var total float64

	c := &cobra.Command{
		Use:   "update <result-id>",
		Short: "Correct extracted fields of a result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			var patch domain.ResultPatch
			if f.Changed("invoice-number") {
				patch.InvoiceNumber = &invoiceNumber
			}
			if f.Changed("vendor") {
				patch.VendorName = &vendor
			}
			if f.Changed("invoice-date") {
				patch.InvoiceDate = &invoiceDate
			}
			if f.Changed("due-date") {
				patch.DueDate = &dueDate
			}
			if f.Changed("total") {
				patch.TotalAmount = &total
			}
			if f.Changed("notes") {
				patch.Notes = &notes
			}
			if patch == (domain.ResultPatch{}) {
				return fmt.Errorf("nothing to update: %w", domain.ErrInvalidRequest)
			}

			return withApp(cmd, g, func(a *app) error {
				res, err := a.api.Results.Update(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, res, func(w io.Writer) { printResult(w, res) })
			})
		},
	}

	c.Flags().StringVar(&invoiceNumber, "invoice-number", "", "Invoice number")
	c.Flags().StringVar(&vendor, "vendor", "", "Vendor name")
	c.Flags().StringVar(&invoiceDate, "invoice-date", "", "Invoice date (YYYY-MM-DD)")
	c.Flags().StringVar(&dueDate, "due-date", "", "Due date (YYYY-MM-DD)")
	c.Flags().Float64Var(&total, "total", 0, "Total amount")
	c.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	return c
}
