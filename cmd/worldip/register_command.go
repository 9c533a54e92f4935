package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type submissionOutput struct {
	DraftID       string `json:"draft_id"`
	CertificateID string `json:"certificate_id"`
	Transaction   string `json:"transaction,omitempty"`
	Fingerprint   string `json:"fingerprint"`
	Message       string `json:"message,omitempty"`
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "register DRAFT_ID",
		Short: "Submit a draft to the registry",
		Long: `Submit a draft as a new certificate. The draft's owners must total
exactly 100%. The draft is frozen once the registry accepts it.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.identity(cmd.Context()); err != nil {
				return err
			}
			svc, err := ctx.service(serviceOptions{drafts: true, registry: true})
			if err != nil {
				return err
			}
			sub, err := svc.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, submissionOutput{
					DraftID:       sub.Draft.ID,
					CertificateID: sub.CertificateID.String(),
					Transaction:   sub.Transaction,
					Fingerprint:   sub.Draft.Fingerprint,
					Message:       sub.Message,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatusLine("Certificate", statusOK, sub.CertificateID.String(), shouldColorize(out)))
			fmt.Fprintln(out, renderField("Fingerprint", sub.Draft.Fingerprint))
			fmt.Fprintln(out, renderField("Transaction", sub.Transaction))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	return cmd
}
