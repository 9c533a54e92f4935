// Package services defines shared utilities consumed by the registration
// workflow, the registry client and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers, draft IDs and the
//     running command for logging and request tracing.
//   - Structured error markers plus the Wrap helper, and ExitCode which
//     classifies failures into the CLI's exit statuses.
//
// Use these helpers when wiring new commands so error handling and
// observability stay uniform across the tool.
package services
