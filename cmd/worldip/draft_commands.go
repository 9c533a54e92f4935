package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"worldip/internal/draft"
	"worldip/internal/ownership"
	"worldip/internal/workflow"
)

type draftOutput struct {
	ID              string           `json:"id"`
	Owner           string           `json:"owner"`
	Status          string           `json:"status"`
	Fingerprint     string           `json:"fingerprint"`
	InputKind       string           `json:"input_kind"`
	FileName        string           `json:"file_name,omitempty"`
	FileFormat      string           `json:"file_format"`
	SizeBytes       int64            `json:"size_bytes"`
	Description     string           `json:"description"`
	MetadataURI     string           `json:"metadata_uri"`
	Owners          ownership.Shares `json:"owners"`
	OwnersTotal     int              `json:"owners_total"`
	CertificateID   string           `json:"certificate_id,omitempty"`
	TransactionHash string           `json:"transaction_hash,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toDraftOutput(d *draft.Draft) draftOutput {
	return draftOutput{
		ID:              d.ID,
		Owner:           d.Owner.Checksum(),
		Status:          string(d.Status),
		Fingerprint:     d.Fingerprint,
		InputKind:       d.InputKind,
		FileName:        d.FileName,
		FileFormat:      d.FileFormat,
		SizeBytes:       d.SizeBytes,
		Description:     d.Description,
		MetadataURI:     d.MetadataURI,
		Owners:          d.Shares,
		OwnersTotal:     d.Shares.Total(),
		CertificateID:   d.CertificateID,
		TransactionHash: d.TransactionHash,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func newDraftCommand(ctx *commandContext) *cobra.Command {
	draftCmd := &cobra.Command{
		Use:   "draft",
		Short: "Prepare registrations before submitting them",
	}
	draftCmd.AddCommand(newDraftNewCommand(ctx))
	draftCmd.AddCommand(newDraftListCommand(ctx))
	draftCmd.AddCommand(newDraftShowCommand(ctx))
	draftCmd.AddCommand(newDraftOwnersCommand(ctx))
	draftCmd.AddCommand(newDraftDescribeCommand(ctx))
	draftCmd.AddCommand(newDraftDeleteCommand(ctx))
	return draftCmd
}

func newDraftNewCommand(ctx *commandContext) *cobra.Command {
	var input inputFlags
	var description string
	var format string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "new [FILE]",
		Short: "Fingerprint content and open a registration draft",
		Long: `Fingerprint FILE (or --text / --text-file) and save a draft owned
entirely by the signed-in address. Adjust owners with "draft owners" and
submit with "register".`,
		Args: argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ctx.identity(cmd.Context())
			if err != nil {
				return err
			}
			var fileArg string
			if len(args) == 1 {
				fileArg = args[0]
			}
			in, err := input.resolve(cmd, fileArg)
			if err != nil {
				return err
			}
			defer in.Close()

			svc, err := ctx.service(serviceOptions{drafts: true})
			if err != nil {
				return err
			}
			d, err := svc.StartRegistration(cmd.Context(), id.Address, in, workflow.Metadata{
				Description: description,
				FileFormat:  format,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, toDraftOutput(d))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatusLine("Draft", statusOK, d.ID, shouldColorize(out)))
			fmt.Fprintln(out, renderField("Fingerprint", d.Fingerprint))
			fmt.Fprintln(out, renderField("Owners", formatOwners(d.Shares)))
			fmt.Fprintf(out, "Submit with: worldip register %s\n", d.ShortID())
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the work")
	cmd.Flags().StringVar(&format, "format", "", "File format recorded with the work (default: file extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the draft as JSON")
	return cmd
}

func newDraftListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registration drafts",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner ownership.Address
			if !all {
				id, err := ctx.identity(cmd.Context())
				if err != nil {
					return err
				}
				owner = id.Address
			}
			svc, err := ctx.service(serviceOptions{drafts: true})
			if err != nil {
				return err
			}
			drafts, err := svc.Drafts(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]draftOutput, 0, len(drafts))
				for _, d := range drafts {
					out = append(out, toDraftOutput(d))
				}
				return writeJSON(cmd, out)
			}
			if len(drafts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No drafts")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("ID"), col("Name"), numCol("Size"), col("Owners"), col("Status"), col("Certificate"), col("Updated")},
				draftRows(drafts),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include drafts of every signed-in address used on this machine")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit drafts as JSON")
	return cmd
}

func draftRows(drafts []*draft.Draft) [][]string {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		size := "-"
		if d.InputKind == "file" {
			size = formatSize(d.SizeBytes)
		}
		cert := d.CertificateID
		if cert == "" {
			cert = "-"
		}
		rows = append(rows, []string{
			d.ShortID(),
			d.DisplayName(),
			size,
			formatOwners(d.Shares),
			string(d.Status),
			cert,
			humanizeTime(d.UpdatedAt),
		})
	}
	return rows
}

func newDraftShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a draft",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(serviceOptions{drafts: true})
			if err != nil {
				return err
			}
			d, err := svc.Draft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, toDraftOutput(d))
			}
			printDraft(cmd, d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the draft as JSON")
	return cmd
}

func printDraft(cmd *cobra.Command, d *draft.Draft) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderField("Draft", d.ID))
	fmt.Fprintln(out, renderField("Name", d.DisplayName()))
	fmt.Fprintln(out, renderField("Kind", d.InputKind))
	if d.InputKind == "file" {
		fmt.Fprintln(out, renderField("Size", formatSize(d.SizeBytes)))
	}
	fmt.Fprintln(out, renderField("Format", d.FileFormat))
	fmt.Fprintln(out, renderField("Fingerprint", d.Fingerprint))
	fmt.Fprintln(out, renderField("Metadata URI", d.MetadataURI))
	fmt.Fprintln(out, renderField("Description", d.Description))
	fmt.Fprintln(out, renderField("Created", formatTime(d.CreatedAt)))
	if d.Editable() {
		if err := d.Ready(); err != nil {
			fmt.Fprintln(out, renderStatusLine("Status", statusWarn, "open, not ready: "+err.Error(), colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("Status", statusInfo, "open, ready to register", colorize))
		}
	} else {
		fmt.Fprintln(out, renderStatusLine("Status", statusOK, "submitted as certificate "+d.CertificateID, colorize))
		if d.TransactionHash != "" {
			fmt.Fprintln(out, renderField("Transaction", d.TransactionHash))
		}
	}
	if len(d.Shares) > 0 {
		fmt.Fprintln(out, sharesTable(d.Shares))
	}
}

func newDraftOwnersCommand(ctx *commandContext) *cobra.Command {
	var sole bool
	var add []string

	cmd := &cobra.Command{
		Use:   "owners ID (--sole | --add ADDR=PCT ...)",
		Short: "Set the ownership split of a draft",
		Long: `Set how ownership of a draft is split.

--sole gives the signed-in address 100%. Each --add ADDR=PCT lists a
co-owner; the signed-in address keeps whatever remains of 100%.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sole == (len(add) > 0) {
				return usageErrorf("use exactly one of --sole or --add")
			}
			id, err := ctx.identity(cmd.Context())
			if err != nil {
				return err
			}
			shares := ownership.Sole(id.Address)
			if !sole {
				others := make([]ownership.Share, 0, len(add))
				for _, value := range add {
					share, err := ownership.ParseShare(value)
					if err != nil {
						return usageError{err: err}
					}
					others = append(others, share)
				}
				if shares, err = ownership.WithPrimary(id.Address, others); err != nil {
					return usageError{err: err}
				}
			}

			svc, err := ctx.service(serviceOptions{drafts: true})
			if err != nil {
				return err
			}
			d, err := svc.SetShares(cmd.Context(), args[0], shares)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sharesTable(d.Shares))
			if err := d.Shares.Validate(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Owners", statusWarn, err.Error(), shouldColorize(out)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sole, "sole", false, "Give the signed-in address full ownership")
	cmd.Flags().StringArrayVar(&add, "add", nil, "Co-owner as ADDR=PCT (repeatable)")
	return cmd
}

func newDraftDescribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "describe ID TEXT",
		Short: "Replace a draft's description",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(serviceOptions{drafts: true})
			if err != nil {
				return err
			}
			d, err := svc.Describe(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Draft %s description updated\n", d.ShortID())
			return nil
		},
	}
}

func newDraftDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a draft",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(serviceOptions{drafts: true})
			if err != nil {
				return err
			}
			if err := svc.DeleteDraft(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted draft %s\n", args[0])
			return nil
		},
	}
}
