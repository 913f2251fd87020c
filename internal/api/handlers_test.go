package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/domainmetrics"
	"github.com/phrazzld/scribe-api/internal/metrics"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/service"
	"github.com/phrazzld/scribe-api/internal/store"
	"github.com/phrazzld/scribe-api/internal/task"
)

type mockBrandLookup struct {
	LookupFn func(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error)
}

func (m *mockBrandLookup) Lookup(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error) {
	return m.LookupFn(ctx, websiteURL)
}

type mockDomainAnalyzer struct {
	inputs    []string
	AnalyzeFn func(ctx context.Context, input string) ([]domain.DomainAnalysis, error)
}

func (m *mockDomainAnalyzer) Analyze(ctx context.Context, input string) ([]domain.DomainAnalysis, error) {
	m.inputs = append(m.inputs, input)
	return m.AnalyzeFn(ctx, input)
}

type testServer struct {
	router    http.Handler
	service   *service.BatchService
	generator *task.MockGenerator
	brands    *mockBrandLookup
	domains   *mockDomainAnalyzer
	metrics   *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log, _ := logger.GetTestLogger(t)
	blogs := store.NewMemoryBlogStore()
	sink, err := service.NewBlogSink(blogs, log)
	require.NoError(t, err)
	generator := task.NewMockGenerator()
	runner, err := task.NewRunner(task.NewRegistry(nil, log), generator, sink, task.DefaultRunnerConfig(), log)
	require.NoError(t, err)
	svc, err := service.NewBatchService(runner, blogs, service.Config{MaxParallel: 3}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	m := metrics.New()
	brands := &mockBrandLookup{}
	batchHandler := NewBatchHandler(svc, log)
	blogHandler := NewBlogHandler(svc, m, log)
	brandHandler := NewBrandHandler(brands, m, log)
	domains := &mockDomainAnalyzer{}
	domainHandler := NewDomainHandler(domains, m, log)
	domainHandler.now = func() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/batches", batchHandler.SubmitBatch)
		r.Post("/batches/form", batchHandler.SubmitForm)
		r.Post("/batches/csv", batchHandler.SubmitCSV)
		r.Get("/tasks", batchHandler.ListTasks)
		r.Delete("/tasks", batchHandler.ClearTasks)
		r.Delete("/tasks/{id}", batchHandler.DeleteTask)
		r.Post("/tasks/{id}/retry", batchHandler.RetryTask)
		r.Get("/options", batchHandler.Options)
		r.Get("/blogs", blogHandler.ListBlogs)
		r.Get("/blogs/{id}", blogHandler.GetBlog)
		r.Get("/export/docx", blogHandler.ExportDocx)
		r.Post("/brand-ads", brandHandler.LookupBrandAds)
		r.Post("/domains/analyze", domainHandler.AnalyzeDomains)
		r.Post("/domains/export", domainHandler.ExportDomains)
	})

	return &testServer{router: r, service: svc, generator: generator, brands: brands, domains: domains, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func validBlogRequest(keyword string) domain.BlogRequest {
	return domain.BlogRequest{
		PrimaryKeyword: keyword,
		WordCount:      1000,
		Tone:           domain.ToneTechnical,
		BacklinkURL:    "https://example.com/product",
	}
}

func decodeReceipt(t *testing.T, rr *httptest.ResponseRecorder) service.BatchReceipt {
	t.Helper()
	var receipt service.BatchReceipt
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&receipt))
	return receipt
}

func TestSubmitBatchEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/batches", SubmitBatchRequest{
		Requests:    []domain.BlogRequest{validBlogRequest("golang"), validBlogRequest("rust")},
		Concurrency: 2,
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	receipt := decodeReceipt(t, rr)
	assert.Len(t, receipt.TaskIDs, 2)
	assert.Equal(t, 2, receipt.Workers)

	s.service.Wait()

	rr = s.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tasks TasksResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tasks))
	assert.Len(t, tasks.Tasks, 2)
	assert.Equal(t, 2, tasks.Counts[task.TaskStatusCompleted])
	assert.False(t, tasks.Active)

	rr = s.do(t, http.MethodGet, "/api/blogs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var blogs []domain.GeneratedBlog
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&blogs))
	assert.Len(t, blogs, 2)

	rr = s.do(t, http.MethodGet, "/api/blogs/"+receipt.TaskIDs[0].String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var blog domain.GeneratedBlog
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&blog))
	assert.Equal(t, receipt.TaskIDs[0], blog.ID)
}

func TestSubmitEmptyBatchEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/batches", SubmitBatchRequest{Requests: []domain.BlogRequest{}})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	receipt := decodeReceipt(t, rr)
	assert.Empty(t, receipt.TaskIDs)
	assert.Empty(t, receipt.Rejected)

	rr = s.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tasks TasksResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tasks))
	assert.Empty(t, tasks.Tasks)
	assert.False(t, tasks.Active)
}

func TestSubmitBatchEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/batches", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/batches", strings.NewReader(`{"reqs":[]}`))
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("no valid requests", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/api/batches", SubmitBatchRequest{
			Requests: []domain.BlogRequest{{PrimaryKeyword: "x"}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var body struct {
			Error   string                    `json:"error"`
			Details []service.RejectedRequest `json:"details"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "No valid blog requests", body.Error)
		require.Len(t, body.Details, 1)
		assert.NotEmpty(t, body.Details[0].Errors)
	})
}

func TestSubmitFormEndpoint(t *testing.T) {
	s := newTestServer(t)

	base := validBlogRequest("editions")
	base.BlogTitle = "Field Guide"
	rr := s.do(t, http.MethodPost, "/api/batches/form", SubmitFormRequest{Request: base, NumberOfBlogs: 2})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Len(t, decodeReceipt(t, rr).TaskIDs, 2)
	s.service.Wait()

	rr = s.do(t, http.MethodPost, "/api/batches/form", SubmitFormRequest{Request: base, NumberOfBlogs: 11})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid number of blogs")
}

func TestSubmitCSVEndpoint(t *testing.T) {
	s := newTestServer(t)

	upload := func(t *testing.T, content string) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "blogs.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("concurrency", "2"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/batches/csv", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		return rr
	}

	rr := upload(t, "primaryKeyword,backlinkUrl,tone\n"+
		"go concurrency,https://example.com,technical\n"+
		"channels,https://example.com/ch,casual\n")
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Len(t, decodeReceipt(t, rr).TaskIDs, 2)
	s.service.Wait()

	rr = upload(t, "Title,Notes\nfoo,bar\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/batches/csv", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	missing := httptest.NewRecorder()
	s.router.ServeHTTP(missing, req)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t)

	var calls int
	s.generator.GenerateFn = func(_ context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("quota exceeded")
		}
		return &domain.GeneratedBlog{Title: req.PrimaryKeyword, HTML: "<p>ok</p>"}, nil
	}

	rr := s.do(t, http.MethodPost, "/api/batches", SubmitBatchRequest{Requests: []domain.BlogRequest{validBlogRequest("flaky")}})
	require.Equal(t, http.StatusAccepted, rr.Code)
	id := decodeReceipt(t, rr).TaskIDs[0]
	s.service.Wait()

	rr = s.do(t, http.MethodPost, "/api/tasks/"+id.String()+"/retry", nil)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	retried := decodeReceipt(t, rr)
	require.Len(t, retried.TaskIDs, 1)
	assert.NotEqual(t, id, retried.TaskIDs[0])
	s.service.Wait()

	rr = s.do(t, http.MethodPost, "/api/tasks/"+uuid.NewString()+"/retry", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/tasks/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, http.MethodDelete, "/api/tasks/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cleared ClearResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&cleared))
	assert.Equal(t, 1, cleared.DeletedBlogs)
}

func TestGetBlogNotFound(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/blogs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Blog not found")
}

func TestExportDocxEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/export/docx", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/batches", SubmitBatchRequest{Requests: []domain.BlogRequest{validBlogRequest("export")}})
	require.Equal(t, http.StatusAccepted, rr.Code)
	s.service.Wait()

	rr = s.do(t, http.MethodGet, "/api/export/docx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", rr.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="ai-multi-blogs-.*\.docx"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK", rr.Body.String()[:2])
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.BlogExportsTotal))
}

func TestBrandAdsEndpoint(t *testing.T) {
	s := newTestServer(t)
	total := 12

	tests := []struct {
		name       string
		lookup     func(context.Context, string) (*domain.BrandAdReport, error)
		wantStatus int
		outcome    string
	}{
		{
			name: "found",
			lookup: func(_ context.Context, url string) (*domain.BrandAdReport, error) {
				return &domain.BrandAdReport{WebsiteURL: url, BrandName: "Acme", AdCounts: &domain.AdCounts{Total: &total}}, nil
			},
			wantStatus: http.StatusOK,
			outcome:    "found",
		},
		{
			name: "invalid url",
			lookup: func(context.Context, string) (*domain.BrandAdReport, error) {
				return nil, domain.ValidateWebsiteURL("nope")
			},
			wantStatus: http.StatusBadRequest,
			outcome:    "invalid",
		},
		{
			name: "unidentified",
			lookup: func(context.Context, string) (*domain.BrandAdReport, error) {
				return nil, brand.ErrBrandNotIdentified
			},
			wantStatus: http.StatusUnprocessableEntity,
			outcome:    "unidentified",
		},
		{
			name: "internal failure",
			lookup: func(context.Context, string) (*domain.BrandAdReport, error) {
				return nil, errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
			outcome:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.brands.LookupFn = tt.lookup
			rr := s.do(t, http.MethodPost, "/api/brand-ads", BrandAdsRequest{WebsiteURL: "https://acme.test"})
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.BrandLookupsTotal.WithLabelValues(tt.outcome)))
		})
	}
}

func TestOptionsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var opts OptionsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&opts))
	assert.Equal(t, domain.ToneOptions, opts.Tones)
	assert.Equal(t, []int{1000, 1500, 2000}, opts.WordCounts)
	assert.Equal(t, 10, opts.MaxEditions)
}

func TestAnalyzeDomainsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rating, traffic := 46.5, 1200
	s.domains.AnalyzeFn = func(context.Context, string) ([]domain.DomainAnalysis, error) {
		return []domain.DomainAnalysis{
			{Domain: "acme.com", DomainRating: &rating, USTraffic: &traffic, Status: domain.AnalysisSuccess, Provider: "semrush"},
			{Domain: "broken.com", Status: domain.AnalysisError, Error: "status 403", Provider: "semrush"},
		}, nil
	}

	rr := s.do(t, http.MethodPost, "/api/domains/analyze", DomainAnalysisRequest{Domains: "acme.com, broken.com"})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp DomainAnalysisResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "acme.com", resp.Results[0].Domain)
	assert.Equal(t, "status 403", resp.Results[1].Error)
	assert.Equal(t, []string{"acme.com, broken.com"}, s.domains.inputs)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.DomainAnalysesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.DomainAnalysesTotal.WithLabelValues("error")))
}

func TestAnalyzeDomainsEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "no domains", err: domainmetrics.ErrNoDomains, wantStatus: http.StatusBadRequest, wantError: "no domains provided"},
		{name: "too many", err: domainmetrics.ErrTooManyDomains, wantStatus: http.StatusBadRequest, wantError: "maximum 20 domains allowed at once"},
		{name: "internal", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: "Failed to analyze domains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.domains.AnalyzeFn = func(context.Context, string) ([]domain.DomainAnalysis, error) {
				return nil, tt.err
			}
			rr := s.do(t, http.MethodPost, "/api/domains/analyze", DomainAnalysisRequest{Domains: "x"})
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantError)
		})
	}

	t.Run("empty body", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/api/domains/analyze", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestExportDomainsEndpoint(t *testing.T) {
	s := newTestServer(t)
	traffic := 1200
	body := DomainExportRequest{Results: []domain.DomainAnalysis{
		{Domain: "acme.com", USTraffic: &traffic, Status: domain.AnalysisSuccess, InstagramDisplayName: "Acme", Provider: "semrush"},
		{Domain: "broken.com", Status: domain.AnalysisError, Error: "status 403", Provider: "semrush"},
	}}

	rr := s.do(t, http.MethodPost, "/api/domains/export", body)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="domain_metrics_20261014_093000.csv"`, rr.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "domain,domain_rating,us_traffic"))
	assert.Equal(t, "acme.com,,1200,Acme,,,,semrush", lines[1])
}
