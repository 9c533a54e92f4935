package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"worldip/internal/config"
	"worldip/internal/fileutil"
	"worldip/internal/ownership"
	"worldip/internal/registry"
	"worldip/internal/services"
)

type certificateOutput struct {
	ID              string           `json:"id"`
	Fingerprint     string           `json:"fingerprint"`
	OriginalHash    string           `json:"original_fingerprint"`
	MetadataURI     string           `json:"metadata_uri"`
	Description     string           `json:"description"`
	FileFormat      string           `json:"file_format"`
	RegisteredAt    time.Time        `json:"registered_at"`
	Owners          ownership.Shares `json:"owners"`
	Revisions       int              `json:"revisions"`
	History         []string         `json:"history"`
	TransactionHash string           `json:"transaction_hash,omitempty"`
}

func toCertificateOutput(cert *registry.Certificate) certificateOutput {
	history := cert.History()
	return certificateOutput{
		ID:              cert.ID.String(),
		Fingerprint:     cert.LatestFileHash(),
		OriginalHash:    cert.FileHash,
		MetadataURI:     cert.MetadataURI,
		Description:     cert.Description,
		FileFormat:      cert.FileFormat,
		RegisteredAt:    cert.RegisteredAt(),
		Owners:          cert.Owners,
		Revisions:       len(history),
		History:         history,
		TransactionHash: cert.TransactionHash,
	}
}

func newCertificatesCommand(ctx *commandContext) *cobra.Command {
	certCmd := &cobra.Command{
		Use:     "certificates",
		Aliases: []string{"certs"},
		Short:   "Inspect registered certificates",
	}
	certCmd.AddCommand(newCertificatesListCommand(ctx))
	certCmd.AddCommand(newCertificatesShowCommand(ctx))
	certCmd.AddCommand(newCertificatesExportCommand(ctx))
	return certCmd
}

func newCertificatesListCommand(ctx *commandContext) *cobra.Command {
	var ownerFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List certificates co-owned by an address",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner ownership.Address
			if strings.TrimSpace(ownerFlag) != "" {
				parsed, err := ownership.ParseAddress(ownerFlag)
				if err != nil {
					return usageError{err: err}
				}
				owner = parsed
			} else {
				id, err := ctx.identity(cmd.Context())
				if err != nil {
					return err
				}
				owner = id.Address
			}
			client, err := ctx.registryClient()
			if err != nil {
				return err
			}
			ids, err := client.ListCertificates(cmd.Context(), owner)
			if err != nil {
				return err
			}
			certs, err := fetchCertificates(cmd.Context(), client, ids)
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]certificateOutput, 0, len(certs))
				for _, cert := range certs {
					out = append(out, toCertificateOutput(cert))
				}
				return writeJSON(cmd, out)
			}
			if len(certs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No certificates for %s\n", owner.Checksum())
				return nil
			}
			rows := make([][]string, 0, len(certs))
			for _, cert := range certs {
				rows = append(rows, []string{
					cert.ID.String(),
					truncate(cert.Description, 40),
					cert.FileFormat,
					strconv.Itoa(len(cert.History())),
					shareOf(cert.Owners, owner),
					humanizeTime(cert.RegisteredAt()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{numCol("ID"), col("Description"), col("Format"), numCol("Revisions"), numCol("Share"), col("Registered")},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Address to list (default: signed-in address)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit certificates as JSON")
	return cmd
}

func fetchCertificates(ctx context.Context, client *registry.Client, ids []registry.CertificateID) ([]*registry.Certificate, error) {
	certs := make([]*registry.Certificate, 0, len(ids))
	for _, id := range ids {
		cert, err := client.GetCertificate(ctx, id)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

func shareOf(shares ownership.Shares, addr ownership.Address) string {
	for _, share := range shares {
		if share.Address == addr {
			return fmt.Sprintf("%d%%", share.Percentage)
		}
	}
	return "-"
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

func newCertificatesShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a certificate and its revision history",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.registryClient()
			if err != nil {
				return err
			}
			cert, err := client.GetCertificate(cmd.Context(), registry.CertificateID(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, toCertificateOutput(cert))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderField("Certificate", cert.ID.String()))
			fmt.Fprintln(out, renderField("Fingerprint", cert.LatestFileHash()))
			fmt.Fprintln(out, renderField("Description", cert.Description))
			fmt.Fprintln(out, renderField("Format", cert.FileFormat))
			fmt.Fprintln(out, renderField("Metadata URI", cert.MetadataURI))
			fmt.Fprintln(out, renderField("Registered", formatTime(cert.RegisteredAt())))
			fmt.Fprintln(out, renderField("Transaction", cert.TransactionHash))
			if len(cert.Owners) > 0 {
				fmt.Fprintln(out, sharesTable(cert.Owners))
			}
			fmt.Fprintln(out, historyTable(cert))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the certificate as JSON")
	return cmd
}

func historyTable(cert *registry.Certificate) string {
	rows := [][]string{{"0", cert.FileHash, "registered", humanizeTime(cert.RegisteredAt())}}
	n := 1
	for _, rev := range cert.Updates {
		if rev.FileHash == "" {
			continue
		}
		when := "-"
		if rev.Timestamp > 0 {
			when = humanizeTime(time.Unix(rev.Timestamp, 0))
		}
		note := "update"
		if rev.Description != "" {
			note = truncate(rev.Description, 30)
		}
		rows = append(rows, []string{strconv.Itoa(n), rev.FileHash, note, when})
		n++
	}
	return renderTable(
		[]column{numCol("Rev"), col("Fingerprint"), col("Note"), col("When")},
		rows,
	)
}

func newCertificatesExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a certificate record as JSON",
		Long:  "Write the certificate as returned by the registry to stdout, or to a file with -o.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.registryClient()
			if err != nil {
				return err
			}
			cert, err := client.GetCertificate(cmd.Context(), registry.CertificateID(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			if strings.TrimSpace(outputPath) == "" || outputPath == "-" {
				return writeJSON(cmd, cert)
			}

			target, err := config.ExpandPath(outputPath)
			if err != nil {
				return usageError{err: err}
			}
			data, err := json.MarshalIndent(cert, "", "  ")
			if err != nil {
				return fmt.Errorf("encode certificate: %w", err)
			}
			if err := fileutil.WriteFileAtomic(target, append(data, '\n'), 0o644, 0o755); err != nil {
				return fmt.Errorf("%w: export certificate: %w", services.ErrIO, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote certificate %s to %s\n", cert.ID, target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (default: stdout)")
	return cmd
}
