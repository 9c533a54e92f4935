package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"worldip/internal/ownership"
)

// CertificateID identifies a registered work. The backend sends it as a
// number in certificate bodies and as a string in create responses, so both
// forms decode; it is re-encoded as a number whenever it is numeric.
type CertificateID string

func (id CertificateID) String() string {
	return string(id)
}

// IsNumeric reports whether the id is a plain decimal integer.
func (id CertificateID) IsNumeric() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

func (id CertificateID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *CertificateID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CertificateID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("certificate id: %w", err)
	}
	*id = CertificateID(n.String())
	return nil
}

// Revision is one update applied to a certificate. Older backends list
// revisions as bare file hashes; newer ones send the full entry.
type Revision struct {
	FileHash        string `json:"fileHash"`
	Description     string `json:"description,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var hash string
		if err := json.Unmarshal(data, &hash); err != nil {
			return err
		}
		*r = Revision{FileHash: hash}
		return nil
	}
	type plain Revision
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*r = Revision(out)
	return nil
}

// Certificate is a registered work as returned by GET /certificates/:id.
type Certificate struct {
	ID              CertificateID    `json:"id"`
	FileHash        string           `json:"fileHash"`
	MetadataURI     string           `json:"metadataURI"`
	Description     string           `json:"description"`
	FileFormat      string           `json:"fileFormat"`
	Timestamp       int64            `json:"timestamp"`
	Owners          ownership.Shares `json:"owners"`
	Updates         []Revision       `json:"updates"`
	MetadataUpdates []string         `json:"metadataUpdates"`
	TransactionHash string           `json:"transactionHash"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// LatestFileHash returns the fingerprint of the current revision: the last
// update's hash, or the original registration hash when there are none.
func (c Certificate) LatestFileHash() string {
	for i := len(c.Updates) - 1; i >= 0; i-- {
		if hash := strings.TrimSpace(c.Updates[i].FileHash); hash != "" {
			return hash
		}
	}
	return c.FileHash
}

// History returns every fingerprint the certificate has carried, oldest
// first.
func (c Certificate) History() []string {
	hashes := make([]string, 0, len(c.Updates)+1)
	hashes = append(hashes, c.FileHash)
	for _, rev := range c.Updates {
		if rev.FileHash != "" {
			hashes = append(hashes, rev.FileHash)
		}
	}
	return hashes
}

// RegisteredAt returns the on-chain timestamp, falling back to CreatedAt.
func (c Certificate) RegisteredAt() time.Time {
	if c.Timestamp > 0 {
		return time.Unix(c.Timestamp, 0).UTC()
	}
	return c.CreatedAt
}

// CreateRequest is the body of POST /certificates/create.
type CreateRequest struct {
	FileHash    string           `json:"fileHash"`
	MetadataURI string           `json:"metadataURI"`
	Description string           `json:"description"`
	FileFormat  string           `json:"fileFormat"`
	Owners      ownership.Shares `json:"owners"`
	UserAddress string           `json:"userAddress,omitempty"`
}

// CreateResponse is the body returned by POST /certificates/create.
type CreateResponse struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	Transaction   string        `json:"transaction"`
	CertificateID CertificateID `json:"certificateId"`
}

// UpdateRequest is the body of POST /certificates/update.
type UpdateRequest struct {
	CertificateID      CertificateID `json:"certificateId"`
	UpdatedFileHash    string        `json:"updatedFileHash"`
	UpdatedMetadataURI string        `json:"updatedMetadataURI"`
	UpdatedDescription string        `json:"updatedDescription"`
}

// UpdateResponse is the body returned by POST /certificates/update.
type UpdateResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Transaction string   `json:"transaction"`
	UpdateEntry Revision `json:"updateEntry"`
}

// User is the body of POST /users/register.
type User struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Company     string   `json:"company"`
	Tags        []string `json:"tags"`
	UserAddress string   `json:"userAddress"`
}

// RegisterResponse is the body returned by POST /users/register.
type RegisterResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Transaction string `json:"transaction"`
}

// envelope is the wrapper every backend response shares.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}
