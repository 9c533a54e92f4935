package workflow

import (
	"context"
	"fmt"
	"testing"

	"worldip/internal/config"
	"worldip/internal/ownership"
	"worldip/internal/registry"
	"worldip/internal/services"
	"worldip/internal/testsupport"
)

const (
	alice = ownership.Address("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	bob   = ownership.Address("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
)

type fakeRegistry struct {
	certs     map[registry.CertificateID]*registry.Certificate
	created   []registry.CreateRequest
	updates   []registry.UpdateRequest
	createErr error
	nextID    int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{certs: map[registry.CertificateID]*registry.Certificate{}, nextID: 1}
}

func (f *fakeRegistry) CreateCertificate(_ context.Context, req registry.CreateRequest) (registry.CreateResponse, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return registry.CreateResponse{}, f.createErr
	}
	id := registry.CertificateID(fmt.Sprint(f.nextID))
	f.nextID++
	f.certs[id] = &registry.Certificate{
		ID:          id,
		FileHash:    req.FileHash,
		MetadataURI: req.MetadataURI,
		Description: req.Description,
		FileFormat:  req.FileFormat,
		Owners:      req.Owners,
	}
	return registry.CreateResponse{Success: true, CertificateID: id, Transaction: "0xtx" + id.String()}, nil
}

func (f *fakeRegistry) UpdateCertificate(_ context.Context, req registry.UpdateRequest) (registry.UpdateResponse, error) {
	f.updates = append(f.updates, req)
	cert, ok := f.certs[req.CertificateID]
	if !ok {
		return registry.UpdateResponse{}, &registry.APIError{StatusCode: 404, Message: "Certificate not found"}
	}
	rev := registry.Revision{FileHash: req.UpdatedFileHash, Description: req.UpdatedDescription}
	cert.Updates = append(cert.Updates, rev)
	return registry.UpdateResponse{Success: true, Transaction: "0xupdate", UpdateEntry: rev}, nil
}

func (f *fakeRegistry) GetCertificate(_ context.Context, id registry.CertificateID) (*registry.Certificate, error) {
	cert, ok := f.certs[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "registry", "get", "", &registry.APIError{StatusCode: 404})
	}
	copied := *cert
	return &copied, nil
}

func (f *fakeRegistry) put(cert *registry.Certificate) {
	f.certs[cert.ID] = cert
}

func newTestService(t *testing.T, reg Registry, opts ...testsupport.ConfigOption) (*Service, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenDraftStore(t, cfg)
	return New(cfg, store, reg), cfg
}
