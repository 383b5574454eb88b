package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

// memStore is an in-memory stand-in for the PostgreSQL repositories. All
// repositories share one mutex so the fakes are safe under the background
// indexing task.
type memStore struct {
	mu        sync.Mutex
	articles  map[string]*domain.Article
	assets    map[string]*domain.Asset
	chunks    map[string][]*domain.KnowledgeChunk
	jobs      []*domain.EmbeddingJob
	tickets   map[string]*domain.Ticket
	logs      []*domain.TicketLog
	sequences map[string]int64
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		articles:  make(map[string]*domain.Article),
		assets:    make(map[string]*domain.Asset),
		chunks:    make(map[string][]*domain.KnowledgeChunk),
		tickets:   make(map[string]*domain.Ticket),
		sequences: make(map[string]int64),
	}
}

func (s *memStore) articleRepo() *memArticles { return &memArticles{s} }
func (s *memStore) assetRepo() *memAssets { return &memAssets{s} }
func (s *memStore) chunkRepo() *memChunks { return &memChunks{s} }
func (s *memStore) ticketRepo() *memTickets { return &memTickets{s} }
func (s *memStore) ticketLogRepo() *memLogs { return &memLogs{s} }
func (s *memStore) runner() *testTxRunner { return &testTxRunner{repos: &testTxRepos{store: s}} }
func (s *memStore) jobRepo() *memEmbeddingJobs { return &memEmbeddingJobs{s} }

func (s *memStore) logsFor(ticketID string) []*domain.TicketLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.TicketLog
	for _, l := range s.logs {
		if l.TicketID == ticketID {
			c := *l
			out = append(out, &c)
		}
	}
	return out
}

type testTxRepos struct {
	store   *memStore
	numbers TicketNumberGenerator
}

func (t *testTxRepos) Articles() ArticleRepositoryInterface { return t.store.articleRepo() }
func (t *testTxRepos) Chunks() ChunkRepositoryInterface { return t.store.chunkRepo() }
func (t *testTxRepos) Assets() AssetRepositoryInterface { return t.store.assetRepo() }
func (t *testTxRepos) EmbeddingJobs() EmbeddingJobRepositoryInterface { return t.store.jobRepo() }
func (t *testTxRepos) Tickets() TicketRepositoryInterface { return t.store.ticketRepo() }
func (t *testTxRepos) TicketLogs() TicketLogRepositoryInterface { return t.store.ticketLogRepo() }

func (t *testTxRepos) TicketNumbers() TicketNumberGenerator {
	if t.numbers != nil {
		return t.numbers
	}
	return &memSequence{t.store}
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}

type memArticles struct{ s *memStore }

func (r *memArticles) Create(_ context.Context, a *domain.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *a
	r.s.articles[a.ID] = &c
	return nil
}

func (r *memArticles) get(tenantID, id string, includeDeleted bool) (*domain.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.articles[id]
	if !ok || a.TenantID != tenantID || (!includeDeleted && a.IsDeleted()) {
		return nil, domain.ErrArticleNotFound
	}
	c := *a
	return &c, nil
}

func (r *memArticles) GetByID(_ context.Context, tenantID, id string) (*domain.Article, error) {
	return r.get(tenantID, id, false)
}

func (r *memArticles) LockByID(_ context.Context, tenantID, id string) (*domain.Article, error) {
	return r.get(tenantID, id, true)
}

func (r *memArticles) Update(_ context.Context, a *domain.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.articles[a.ID]
	if !ok || cur.IsDeleted() {
		return domain.ErrArticleNotFound
	}
	c := *a
	c.Assets = nil
	r.s.articles[a.ID] = &c
	return nil
}

func (r *memArticles) SoftDelete(_ context.Context, tenantID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.articles[id]
	if !ok || a.TenantID != tenantID || a.IsDeleted() {
		return domain.ErrArticleNotFound
	}
	a.DeletedAt = &at
	return nil
}

func (r *memArticles) Restore(_ context.Context, tenantID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.articles[id]
	if !ok || a.TenantID != tenantID || !a.IsDeleted() {
		return domain.ErrArticleNotFound
	}
	a.DeletedAt = nil
	a.UpdatedAt = at
	return nil
}

func (r *memArticles) Search(_ context.Context, q ArticleQuery) ([]*domain.Article, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*domain.Article
	for _, a := range r.s.articles {
		if a.TenantID != q.TenantID || a.IsDeleted() {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.Keyword != "" && !strings.Contains(strings.ToLower(a.Title+a.QuestionText+a.SolutionText), strings.ToLower(q.Keyword)) {
			continue
		}
		c := *a
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	start := q.Page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type memAssets struct{ s *memStore }

func (r *memAssets) Create(_ context.Context, a *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *a
	r.s.assets[a.ID] = &c
	return nil
}

func (r *memAssets) GetByID(_ context.Context, tenantID, id string) (*domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok || a.TenantID != tenantID || a.DeletedAt != nil {
		return nil, domain.ErrAssetNotFound
	}
	c := *a
	return &c, nil
}

func (r *memAssets) ListByArticle(_ context.Context, tenantID, articleID string) ([]*domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Asset
	for _, a := range r.s.assets {
		if a.TenantID == tenantID && a.ArticleID == articleID && a.DeletedAt == nil {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memAssets) SoftDelete(_ context.Context, tenantID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok || a.TenantID != tenantID || a.DeletedAt != nil {
		return domain.ErrAssetNotFound
	}
	a.DeletedAt = &at
	return nil
}

func (r *memAssets) SoftDeleteByArticle(_ context.Context, tenantID, articleID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.TenantID == tenantID && a.ArticleID == articleID && a.DeletedAt == nil {
			stamp := at
			a.DeletedAt = &stamp
		}
	}
	return nil
}

func (r *memAssets) RestoreByArticle(_ context.Context, tenantID, articleID string, deletedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.TenantID == tenantID && a.ArticleID == articleID && a.DeletedAt != nil && a.DeletedAt.Equal(deletedAt) {
			a.DeletedAt = nil
		}
	}
	return nil
}

type memChunks struct{ s *memStore }

func (r *memChunks) ReplaceForArticle(_ context.Context, _ string, articleID string, chunks []*domain.KnowledgeChunk) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := make([]*domain.KnowledgeChunk, 0, len(chunks))
	for _, c := range chunks {
		r.s.nextID++
		c.ID = r.s.nextID
		cp := *c
		stored = append(stored, &cp)
	}
	r.s.chunks[articleID] = stored
	return nil
}

func (r *memChunks) ListByArticle(_ context.Context, tenantID, articleID string) ([]*domain.KnowledgeChunk, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.KnowledgeChunk
	for _, c := range r.s.chunks[articleID] {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memChunks) UpdateEmbedding(_ context.Context, id int64, embedding []float32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, list := range r.s.chunks {
		for _, c := range list {
			if c.ID == id {
				c.Embedding = embedding
				return nil
			}
		}
	}
	return domain.ErrArticleNotFound
}

type memEmbeddingJobs struct{ s *memStore }

func (r *memEmbeddingJobs) Create(_ context.Context, job *domain.EmbeddingJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *job
	r.s.jobs = append(r.s.jobs, &c)
	return nil
}

type memTickets struct{ s *memStore }

func (r *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *t
	r.s.tickets[t.ID] = &c
	return nil
}

func (r *memTickets) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.TenantID != tenantID {
		return nil, domain.ErrTicketNotFound
	}
	c := *t
	return &c, nil
}

func (r *memTickets) LockByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *memTickets) UpdateStatus(_ context.Context, t *domain.Ticket, expected domain.TicketStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tickets[t.ID]
	if !ok || cur.TenantID != t.TenantID {
		return domain.ErrTicketNotFound
	}
	if cur.Status != expected {
		return domain.NewConflictError("ticket is no longer %s", expected)
	}
	cur.Status = t.Status
	cur.AssigneeID = t.AssigneeID
	cur.AssigneeName = t.AssigneeName
	cur.FinalSolutionSummary = t.FinalSolutionSummary
	cur.UpdatedAt = t.UpdatedAt
	cur.ClosedAt = t.ClosedAt
	return nil
}

func (r *memTickets) Update(_ context.Context, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tickets[t.ID]
	if !ok || cur.TenantID != t.TenantID {
		return domain.ErrTicketNotFound
	}
	cur.Title = t.Title
	cur.Description = t.Description
	cur.Priority = t.Priority
	cur.CustomerID = t.CustomerID
	cur.DeviceID = t.DeviceID
	cur.DeviceMN = t.DeviceMN
	cur.Meta = t.Meta
	cur.UpdatedAt = t.UpdatedAt
	return nil
}

func (r *memTickets) SetKBArticle(_ context.Context, tenantID, id, articleID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tickets[id]
	if !ok || cur.TenantID != tenantID {
		return domain.ErrTicketNotFound
	}
	if cur.KBArticleID != "" {
		return domain.ErrTicketAlreadyConverted
	}
	cur.KBArticleID = articleID
	cur.UpdatedAt = at
	return nil
}

func (r *memTickets) List(_ context.Context, q TicketQuery) ([]*domain.Ticket, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range r.s.tickets {
		if t.TenantID != q.TenantID {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.VisibleTo != "" && !t.VisibleTo(q.VisibleTo) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNo > out[j].TicketNo })
	return out, int64(len(out)), nil
}

type memLogs struct{ s *memStore }

func (r *memLogs) Append(_ context.Context, l *domain.TicketLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	l.ID = r.s.nextID
	c := *l
	r.s.logs = append(r.s.logs, &c)
	return nil
}

func (r *memLogs) ListByTicket(_ context.Context, ticketID string) ([]*domain.TicketLog, error) {
	return r.s.logsFor(ticketID), nil
}

type memSequence struct{ s *memStore }

func (r *memSequence) Next(_ context.Context, day time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := day.Format("20060102")
	r.s.sequences[key]++
	return r.s.sequences[key], nil
}
