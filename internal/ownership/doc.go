// Package ownership models who owns a registered work: wallet addresses with
// checksum validation and the percentage split between co-owners.
package ownership
