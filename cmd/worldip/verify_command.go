package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldip/internal/registry"
	"worldip/internal/workflow"
)

type verifyOutput struct {
	CertificateID   string `json:"certificate_id,omitempty"`
	Match           bool   `json:"match"`
	Computed        string `json:"computed"`
	Expected        string `json:"expected"`
	MatchedRevision int    `json:"matched_revision"`
	Revisions       int    `json:"revisions"`
	EarlierVersion  bool   `json:"earlier_version"`
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var input inputFlags
	var expect string
	var asJSON bool
	var legacy bool

	cmd := &cobra.Command{
		Use:   "verify (CERT_ID | --expect DIGEST) [FILE]",
		Short: "Check content against a registered fingerprint",
		Long: `Recompute the fingerprint of FILE (or --text) and compare it with the
current revision of certificate CERT_ID, or with --expect DIGEST offline.

Exits with status 1 and "verification failed" when the content does not
match.`,
		Args: argsRange(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offline := strings.TrimSpace(expect) != ""
			var certID, fileArg string
			switch {
			case offline && len(args) > 1:
				return usageErrorf("--expect takes at most one FILE argument")
			case offline:
				if len(args) == 1 {
					fileArg = args[0]
				}
			case len(args) == 0:
				return usageErrorf("provide a CERT_ID or --expect DIGEST")
			default:
				certID = args[0]
				if len(args) == 2 {
					fileArg = args[1]
				}
			}

			in, err := input.resolve(cmd, fileArg)
			if err != nil {
				return err
			}
			defer in.Close()

			opts := serviceOptions{registry: !offline}
			if cmd.Flags().Changed("legacy") {
				opts.legacy = &legacy
			}
			svc, err := ctx.service(opts)
			if err != nil {
				return err
			}

			var result workflow.VerifyResult
			if offline {
				result, err = svc.VerifyDigest(cmd.Context(), expect, in)
			} else {
				result, err = svc.Verify(cmd.Context(), registry.CertificateID(strings.TrimSpace(certID)), in)
			}
			if err != nil {
				return err
			}
			if err := printVerifyResult(cmd, result, asJSON); err != nil {
				return err
			}
			if !result.Match {
				return errVerificationFailed
			}
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVar(&expect, "expect", "", "Compare with this hex digest instead of a certificate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "Use the earlier web client's digest layout")
	return cmd
}

func printVerifyResult(cmd *cobra.Command, result workflow.VerifyResult, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, verifyOutput{
			CertificateID:   result.CertificateID.String(),
			Match:           result.Match,
			Computed:        result.Computed,
			Expected:        strings.ToLower(result.Expected),
			MatchedRevision: result.MatchedRevision,
			Revisions:       result.Revisions,
			EarlierVersion:  result.EarlierVersion(),
		})
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if result.CertificateID != "" {
		fmt.Fprintln(out, renderField("Certificate", result.CertificateID.String()))
	}
	fmt.Fprintln(out, renderField("Computed", result.Computed))
	fmt.Fprintln(out, renderField("Registered", strings.ToLower(result.Expected)))
	switch {
	case result.Match:
		fmt.Fprintln(out, renderStatusLine("Result", statusOK, "content matches the registered fingerprint", colorize))
	case result.EarlierVersion():
		msg := fmt.Sprintf("content matches revision %d of %d, not the current one", result.MatchedRevision+1, result.Revisions)
		fmt.Fprintln(out, renderStatusLine("Result", statusWarn, msg, colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Result", statusError, "content does not match", colorize))
	}
	return nil
}
