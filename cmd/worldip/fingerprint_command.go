package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldip/internal/fingerprint"
)

type fingerprintOutput struct {
	Kind        string `json:"kind"`
	Name        string `json:"name,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	ChunkSize   int    `json:"chunk_size,omitempty"`
	Chunks      int    `json:"chunks,omitempty"`
	Legacy      bool   `json:"legacy_leading_chunk,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Multihash   string `json:"multihash"`
}

func newFingerprintCommand(ctx *commandContext) *cobra.Command {
	var input inputFlags
	var format string
	var asJSON bool
	var legacy bool

	cmd := &cobra.Command{
		Use:   "fingerprint [FILE]",
		Short: "Compute the content fingerprint of a file or text",
		Long: `Compute the content fingerprint used by the registry.

Files are split into 2 MiB chunks whose SHA-256 digests are reduced to a
Merkle root; text is hashed directly as UTF-8. Pass "-" to read a file
from standard input.`,
		Args: argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "hex" && format != "multihash" {
				return usageErrorf("--format must be hex or multihash")
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

			opts := serviceOptions{}
			if cmd.Flags().Changed("legacy") {
				opts.legacy = &legacy
			}
			svc, err := ctx.service(opts)
			if err != nil {
				return err
			}
			digest, err := svc.Fingerprint(cmd.Context(), in)
			if err != nil {
				return err
			}
			mh, err := digest.Multihash()
			if err != nil {
				return err
			}

			out := fingerprintOutput{
				Kind:        in.Kind.String(),
				Name:        in.Name(),
				SizeBytes:   in.Size(),
				Fingerprint: digest.Hex(),
				Multihash:   mh,
			}
			if in.Kind == fingerprint.KindFile {
				out.ChunkSize = svc.ChunkSize()
				out.Chunks = fingerprint.ChunkCount(in.Size(), svc.ChunkSize())
				out.Legacy = ctx.configValue().Fingerprint.LegacyLeadingChunk
				if opts.legacy != nil {
					out.Legacy = legacy
				}
			}
			if asJSON {
				return writeJSON(cmd, out)
			}
			if format == "multihash" {
				fmt.Fprintln(cmd.OutOrStdout(), out.Multihash)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Fingerprint)
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVar(&format, "format", "hex", "Output format: hex or multihash")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit details as JSON")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "Reproduce digests of the earlier web client (first chunk hashed twice)")
	return cmd
}
