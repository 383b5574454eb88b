//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/supporthub/internal/api/handlers"
	"github.com/cloo-solutions/supporthub/internal/indexing"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/repository"
	"github.com/cloo-solutions/supporthub/internal/server"
	"github.com/cloo-solutions/supporthub/internal/service"
	"github.com/cloo-solutions/supporthub/internal/storage"
	"github.com/cloo-solutions/supporthub/internal/testutil"
)

// Identity headers sent by the e2e requests.
const (
	tenantID = "e2e-tenant"
	userID   = "eng-e2e"
	userName = "E2E Engineer"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Store      *storage.AssetStore
	Server     *httptest.Server
	Indexer    *fakeIndexer
	Dispatcher *indexing.Dispatcher
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and RustFS, migrates, and serves the full router
// with a fake vector indexing service behind it.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	store, err := storage.NewAssetStore(ctx, storage.Config{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "e2e-assets",
	})
	if err != nil {
		t.Fatalf("failed to create asset store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Store:      store,
		Indexer:    newFakeIndexer(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.startServer()

	t.Cleanup(env.Cleanup)
	return env
}

func (e *E2ETestEnv) startServer() {
	log := logger.NewNop()
	txRunner := repository.NewTxRunner(e.Pool)

	articleRepo := repository.NewArticleRepository(e.Pool)
	chunkRepo := repository.NewChunkRepository(e.Pool)
	assetRepo := repository.NewAssetRepository(e.Pool)
	ticketRepo := repository.NewTicketRepository(e.Pool)
	ticketLogRepo := repository.NewTicketLogRepository(e.Pool)

	e.Dispatcher = indexing.NewDispatcher(10*time.Second, log)
	indexClient := indexing.NewClient(e.Indexer.server.URL, 5*time.Second)

	articleSvc := service.NewArticleService(articleRepo, chunkRepo, assetRepo, txRunner, log)
	assetSvc := service.NewAssetService(assetRepo, articleRepo, e.Store, log)
	ticketSvc := service.NewTicketService(ticketRepo, ticketLogRepo, txRunner, log)
	conversionSvc := service.NewConversionService(txRunner, ticketLogRepo, indexClient, e.Dispatcher, log)

	e.Server = httptest.NewServer(server.NewRouter(server.RouterConfig{
		Logger:         log,
		Database:       e.Pool,
		ArticleHandler: handlers.NewArticleHandler(articleSvc),
		AssetHandler:   handlers.NewAssetHandler(assetSvc),
		TicketHandler:  handlers.NewTicketHandler(ticketSvc, conversionSvc),
	}))
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = e.Dispatcher.Close(ctx)
		cancel()
	}
	e.Indexer.server.Close()
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		_ = e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		_ = os.RemoveAll(e.BinaryDir)
	}
}

// fakeIndexer stands in for the vector indexing service.
type fakeIndexer struct {
	server *httptest.Server

	mu       sync.Mutex
	status   int
	articles []string
}

func newFakeIndexer() *fakeIndexer {
	f := &fakeIndexer{status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.articles = append(f.articles, strings.TrimPrefix(r.URL.Path, "/ingest/article/"))
		w.WriteHeader(f.status)
	}))
	return f
}

func (f *fakeIndexer) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeIndexer) Indexed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.articles...)
}

// BuildCLI builds the supporthub binary into a temp dir.
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "supporthub-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "supporthub"), "./cmd/supporthub")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build supporthub: %v\n%s", err, out)
	}
}

// RunCLI runs the supporthub binary against the test server.
func (e *E2ETestEnv) RunCLI(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "supporthub"), args...)
	cmd.Dir = e.BinaryDir
	cmd.Env = append(os.Environ(),
		"SUPPORTHUB_API_URL="+e.Server.URL,
		"SUPPORTHUB_TENANT="+tenantID,
		"SUPPORTHUB_USER_ID="+userID,
		"SUPPORTHUB_USER_NAME="+userName,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

func (r *APIResponse) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.Data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", r.Data, err)
	}
}

func (e *E2ETestEnv) Get(path string) *APIResponse {
	return e.Do(http.MethodGet, path, nil)
}

func (e *E2ETestEnv) Post(path string, body interface{}) *APIResponse {
	return e.Do(http.MethodPost, path, body)
}

func (e *E2ETestEnv) Put(path string, body interface{}) *APIResponse {
	return e.Do(http.MethodPut, path, body)
}

func (e *E2ETestEnv) Delete(path string) *APIResponse {
	return e.Do(http.MethodDelete, path, nil)
}

// Do sends a request as the default engineer.
func (e *E2ETestEnv) Do(method, path string, body interface{}) *APIResponse {
	return e.DoAs(method, path, body, userID, "engineer")
}

// DoAs sends a request with an explicit user and role.
func (e *E2ETestEnv) DoAs(method, path string, body interface{}, user, role string) *APIResponse {
	e.T.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reqBody)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Tenant-Id", tenantID)
	req.Header.Set("X-User-Id", user)
	req.Header.Set("X-User-Name", userName)
	req.Header.Set("X-User-Role", role)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := &APIResponse{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			e.T.Fatalf("failed to parse response %q: %v", raw, err)
		}
	}
	return out
}

// Expect fails the test unless the response has the given status.
func (e *E2ETestEnv) Expect(resp *APIResponse, status int) *APIResponse {
	e.T.Helper()
	if resp.StatusCode != status {
		e.T.Fatalf("expected status %d, got %d (%s)", status, resp.StatusCode, resp.Error)
	}
	return resp
}

// UploadToURL PUTs content to a presigned URL.
func (e *E2ETestEnv) UploadToURL(uploadURL string, content []byte, contentType string) {
	e.T.Helper()
	req, err := http.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		e.T.Fatalf("failed to build upload: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		e.T.Fatalf("upload failed with status %d: %s", resp.StatusCode, body)
	}
}

// Download GETs a URL and returns the body.
func (e *E2ETestEnv) Download(url string) []byte {
	e.T.Helper()
	resp, err := e.HTTPClient.Get(url)
	if err != nil {
		e.T.Fatalf("download failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e.T.Fatalf("download failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read download: %v", err)
	}
	return body
}

func ticketPath(id string, parts ...string) string {
	return fmt.Sprintf("/api/tickets/%s", strings.Join(append([]string{id}, parts...), "/"))
}

func articlePath(id string, parts ...string) string {
	return fmt.Sprintf("/api/knowledge/%s", strings.Join(append([]string{id}, parts...), "/"))
}
