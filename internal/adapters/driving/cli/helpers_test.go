package cli

import (
	"bytes"
	"context"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/services"
	"github.com/custodia-labs/replyguard/internal/detectors"
)

// MockIndexService is a hand-written index service for command tests.
type MockIndexService struct {
	Manifest  *domain.IndexManifest
	Builds    []domain.BuildRecord
	BuildErr  error
	StatusErr error
	VerifyErr error

	BuiltDirs []string
	Limit     int
}

func (m *MockIndexService) Build(_ context.Context, corpusDir string) (*domain.IndexManifest, error) {
	m.BuiltDirs = append(m.BuiltDirs, corpusDir)
	if m.BuildErr != nil {
		return nil, m.BuildErr
	}
	return m.Manifest, nil
}

func (m *MockIndexService) Status(_ context.Context) (*domain.IndexManifest, error) {
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	if m.Manifest == nil {
		return nil, domain.ErrIndexNotFound
	}
	return m.Manifest, nil
}

func (m *MockIndexService) History(_ context.Context, limit int) ([]domain.BuildRecord, error) {
	m.Limit = limit
	return m.Builds, nil
}

func (m *MockIndexService) Verify(_ context.Context) error {
	return m.VerifyErr
}

// MockRetrievalService records queries and returns canned results.
type MockRetrievalService struct {
	mu       sync.Mutex
	Results  []domain.SearchResult
	QueryErr error
	Loaded   *domain.IndexManifest

	Texts   []string
	Options []domain.QueryOptions
	Reloads int
}

func (m *MockRetrievalService) Query(_ context.Context, text string, opts domain.QueryOptions) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	m.Options = append(m.Options, opts)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if opts.Filter == nil {
		return m.Results, nil
	}
	var out []domain.SearchResult
	for _, r := range m.Results {
		if ok, _ := opts.Filter(r.Metadata); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRetrievalService) Reload(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reloads++
	return nil
}

func (m *MockRetrievalService) Manifest(_ context.Context) (*domain.IndexManifest, error) {
	if m.Loaded == nil {
		return nil, domain.ErrIndexNotFound
	}
	return m.Loaded, nil
}

func (m *MockRetrievalService) ReloadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reloads
}

// MockReplyService returns a canned response.
type MockReplyService struct {
	Response *domain.ReplyResponse
	Err      error
	Requests []domain.ReplyRequest
}

func (m *MockReplyService) Reply(_ context.Context, req domain.ReplyRequest) (*domain.ReplyResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

// MockSettingsService keeps settings in memory.
type MockSettingsService struct {
	Settings    domain.AppSettings
	Dir         string
	ValidateErr error
	SetErr      error
	Values      map[string]string
}

func newMockSettingsService() *MockSettingsService {
	return &MockSettingsService{
		Settings: domain.DefaultAppSettings(),
		Dir:      "/tmp/replyguard",
		Values:   map[string]string{},
	}
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	m.Settings = *settings
	return nil
}

func (m *MockSettingsService) Set(key, value string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Values[key] = value
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.Settings.Embedding.Provider = provider
	m.Settings.Embedding.Model = model
	m.Settings.Embedding.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.Settings.LLM.Provider = provider
	m.Settings.LLM.Model = model
	m.Settings.LLM.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) Validate() error { return m.ValidateErr }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) ConfigDir() string { return m.Dir }

// MockWatcher fires onChange once per value sent on Publish.
type MockWatcher struct {
	Publish chan struct{}
}

func (m *MockWatcher) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.Publish:
			onChange()
		}
	}
}

// testServices exposes the mocks installed by setupTestServices.
type testServices struct {
	Settings  *MockSettingsService
	Index     *MockIndexService
	Retrieval *MockRetrievalService
	Reply     *MockReplyService
}

// setupTestServices installs mocks plus the real masking service and
// returns a function that restores the previous state.
func setupTestServices() (*testServices, func()) {
	reversible, document := detectors.DefaultChains()
	ts := &testServices{
		Settings:  newMockSettingsService(),
		Index:     &MockIndexService{},
		Retrieval: &MockRetrievalService{},
		Reply:     &MockReplyService{Response: &domain.ReplyResponse{}},
	}
	SetServices(&Services{
		Settings:  ts.Settings,
		Masking:   services.NewMaskingService(reversible, document),
		Index:     ts.Index,
		Retrieval: ts.Retrieval,
		Reply:     ts.Reply,
	})

	return ts, func() {
		SetServices(nil)
		resetFlags()
	}
}

func resetFlags() {
	queryK, queryOwner, queryJSON = 0, "", false
	maskJSON = false
	chatToken, chatJSON = "", false
	historyLimit = 10
	verbose = false
}

// execute runs the root command with args and returns stdout and stderr.
func execute(args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func strPtr(s string) *string { return &s }
