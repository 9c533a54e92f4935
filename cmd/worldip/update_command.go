package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldip/internal/registry"
)

type updateOutput struct {
	CertificateID string `json:"certificate_id"`
	Fingerprint   string `json:"fingerprint"`
	MetadataURI   string `json:"metadata_uri"`
	Description   string `json:"description"`
	Transaction   string `json:"transaction,omitempty"`
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var input inputFlags
	var description string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "update CERT_ID [FILE]",
		Short: "Record a new revision of a registered work",
		Long: `Fingerprint the new content and append it to the certificate's
history. Without --description the current description is kept.`,
		Args: argsRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.identity(cmd.Context()); err != nil {
				return err
			}
			var fileArg string
			if len(args) == 2 {
				fileArg = args[1]
			}
			in, err := input.resolve(cmd, fileArg)
			if err != nil {
				return err
			}
			defer in.Close()

			svc, err := ctx.service(serviceOptions{registry: true})
			if err != nil {
				return err
			}
			result, err := svc.Update(cmd.Context(), registry.CertificateID(strings.TrimSpace(args[0])), in, description)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, updateOutput{
					CertificateID: result.CertificateID.String(),
					Fingerprint:   result.Fingerprint,
					MetadataURI:   result.MetadataURI,
					Description:   result.Description,
					Transaction:   result.Transaction,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatusLine("Updated", statusOK, "certificate "+result.CertificateID.String(), shouldColorize(out)))
			fmt.Fprintln(out, renderField("Fingerprint", result.Fingerprint))
			fmt.Fprintln(out, renderField("Description", result.Description))
			fmt.Fprintln(out, renderField("Transaction", result.Transaction))
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (default: keep the current one)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	return cmd
}
