package mcp

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/services"
	"github.com/custodia-labs/replyguard/internal/detectors"
)

func newMaskingService() *services.MaskingService {
	return services.NewMaskingService(detectors.DefaultChains())
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results  []domain.SearchResult
	manifest *domain.IndexManifest
	err      error

	query string
	opts  domain.QueryOptions
}

func (m *mockRetrievalService) Query(_ context.Context, text string, opts domain.QueryOptions) ([]domain.SearchResult, error) {
	m.query = text
	m.opts = opts
	return m.results, m.err
}

func (m *mockRetrievalService) Reload(context.Context) error {
	return m.err
}

func (m *mockRetrievalService) Manifest(context.Context) (*domain.IndexManifest, error) {
	if m.manifest == nil && m.err == nil {
		return nil, domain.ErrIndexNotFound
	}
	return m.manifest, m.err
}

// mockReplyService is a mock implementation of driving.ReplyService.
type mockReplyService struct {
	response *domain.ReplyResponse
	err      error
	request  domain.ReplyRequest
}

func (m *mockReplyService) Reply(_ context.Context, req domain.ReplyRequest) (*domain.ReplyResponse, error) {
	m.request = req
	return m.response, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	manifest  *domain.IndexManifest
	records   []domain.BuildRecord
	err       error
	lastLimit int
}

func (m *mockIndexService) Build(context.Context, string) (*domain.IndexManifest, error) {
	return m.manifest, m.err
}

func (m *mockIndexService) Status(context.Context) (*domain.IndexManifest, error) {
	return m.manifest, m.err
}

func (m *mockIndexService) History(_ context.Context, limit int) ([]domain.BuildRecord, error) {
	m.lastLimit = limit
	return m.records, m.err
}

func (m *mockIndexService) Verify(context.Context) error {
	return m.err
}
