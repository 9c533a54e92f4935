package draft

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"worldip/internal/ownership"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const draftColumns = "id, owner, fingerprint, input_kind, file_name, file_format, size_bytes, description, metadata_uri, shares_json, status, certificate_id, transaction_hash, created_at, updated_at"

func scanDraft(scanner interface{ Scan(dest ...any) error }) (*Draft, error) {
	var (
		id            string
		owner         string
		fingerprint   string
		inputKind     string
		fileName      sql.NullString
		fileFormat    sql.NullString
		sizeBytes     int64
		description   sql.NullString
		metadataURI   sql.NullString
		sharesRaw     string
		statusStr     string
		certificateID sql.NullString
		txHash        sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&id,
		&owner,
		&fingerprint,
		&inputKind,
		&fileName,
		&fileFormat,
		&sizeBytes,
		&description,
		&metadataURI,
		&sharesRaw,
		&statusStr,
		&certificateID,
		&txHash,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	var shares ownership.Shares
	if err := json.Unmarshal([]byte(sharesRaw), &shares); err != nil {
		return nil, fmt.Errorf("decode shares for %s: %w", id, err)
	}
	return &Draft{
		ID:              id,
		Owner:           ownership.Address(owner),
		Fingerprint:     fingerprint,
		InputKind:       inputKind,
		FileName:        fileName.String,
		FileFormat:      fileFormat.String,
		SizeBytes:       sizeBytes,
		Description:     description.String,
		MetadataURI:     metadataURI.String,
		Shares:          shares,
		Status:          Status(statusStr),
		CertificateID:   certificateID.String,
		TransactionHash: txHash.String,
		CreatedAt:       parseTime(createdRaw),
		UpdatedAt:       parseTime(updatedRaw),
	}, nil
}

func scanDrafts(rows *sql.Rows) ([]*Draft, error) {
	var drafts []*Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return drafts, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
