package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/indexing"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

const (
	placeholderQuestion = "No detailed description provided."
	placeholderCause    = "See final solution."
	uncategorizedTag    = "uncategorized"
)

// ArticleIndexer forwards an article to the external vector index.
type ArticleIndexer interface {
	IndexArticle(ctx context.Context, articleID string) error
}

// TaskDispatcher runs work in the background, detached from the caller.
type TaskDispatcher interface {
	Go(name string, task indexing.Task) <-chan error
}

// ConversionService turns resolved tickets into draft knowledge articles.
type ConversionService struct {
	txRunner   TxRunner
	logs       TicketLogRepositoryInterface
	indexer    ArticleIndexer
	dispatcher TaskDispatcher
	uuidGen    UUIDGenerator
	now        func() time.Time
	log        *logger.Logger
}

func NewConversionService(
	txRunner TxRunner,
	logs TicketLogRepositoryInterface,
	indexer ArticleIndexer,
	dispatcher TaskDispatcher,
	log *logger.Logger,
) *ConversionService {
	return NewConversionServiceWithUUIDGen(txRunner, logs, indexer, dispatcher, log, &DefaultUUIDGenerator{})
}

func NewConversionServiceWithUUIDGen(
	txRunner TxRunner,
	logs TicketLogRepositoryInterface,
	indexer ArticleIndexer,
	dispatcher TaskDispatcher,
	log *logger.Logger,
	uuidGen UUIDGenerator,
) *ConversionService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ConversionService{
		txRunner:   txRunner,
		logs:       logs,
		indexer:    indexer,
		dispatcher: dispatcher,
		uuidGen:    uuidGen,
		now:        time.Now,
		log:        log.With("component", "conversion_service"),
	}
}

type ConvertInput struct {
	TicketID        string
	TenantID        string
	Actor           domain.Actor
	TriggerIndexing bool
}

type ConvertResult struct {
	ArticleID         string
	Message           string
	IndexingSucceeded bool
}

// ConvertToKb creates a draft article from a resolved ticket and latches the
// ticket to it. The article, the latch and the convert_to_kb log row commit
// together; indexing runs afterwards and never undoes the conversion.
func (s *ConversionService) ConvertToKb(ctx context.Context, input ConvertInput) (*ConvertResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConversionService.ConvertToKb", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		TicketID:  input.TicketID,
		Operation: "convert",
	})
	defer span.End()

	var article *domain.Article
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		t, err := repos.Tickets().LockByID(ctx, input.TenantID, input.TicketID)
		if err != nil {
			return err
		}
		if err := t.CanConvert(); err != nil {
			return err
		}

		now := s.now().UTC()
		article = BuildArticleFromTicket(t, s.uuidGen.NewString(), input.Actor.UserID, now)
		if err := domain.ValidateArticle(article); err != nil {
			return err
		}

		if err := repos.Articles().Create(ctx, article); err != nil {
			return err
		}
		if err := repos.Tickets().SetKBArticle(ctx, t.TenantID, t.ID, article.ID, now); err != nil {
			return err
		}

		entry := domain.NewTicketLog(t.ID, domain.TicketLogActionConvertToKB,
			fmt.Sprintf("Converted to knowledge article (ID: %s, title: %s)", article.ID, article.Title),
			input.Actor, "", now)
		return repos.TicketLogs().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket converted to knowledge article",
		"ticket_id", input.TicketID,
		"article_id", article.ID,
		"tenant_id", input.TenantID,
	)

	result := &ConvertResult{
		ArticleID:         article.ID,
		Message:           fmt.Sprintf("Converted to knowledge article (article ID: %s)", article.ID),
		IndexingSucceeded: true,
	}
	if !input.TriggerIndexing {
		return result, nil
	}

	done := s.dispatcher.Go("index-article:"+article.ID, s.indexTask(input.TicketID, article.ID, input.Actor))
	select {
	case err := <-done:
		if errors.Is(err, indexing.ErrDispatcherClosed) {
			s.recordIndexingFailure(context.WithoutCancel(ctx), input.TicketID, article.ID, input.Actor, err)
		}
		result.IndexingSucceeded = err == nil
	case <-ctx.Done():
		result.IndexingSucceeded = false
	}
	return result, nil
}

// indexTask calls the indexer and records any failure in the ticket log.
func (s *ConversionService) indexTask(ticketID, articleID string, actor domain.Actor) indexing.Task {
	return func(ctx context.Context) error {
		err := s.indexer.IndexArticle(ctx, articleID)
		if err == nil {
			s.log.Info("article indexed", "article_id", articleID)
			return nil
		}

		s.recordIndexingFailure(ctx, ticketID, articleID, actor, err)
		return err
	}
}

// recordIndexingFailure appends the convert_to_kb row describing err.
func (s *ConversionService) recordIndexingFailure(ctx context.Context, ticketID, articleID string, actor domain.Actor, err error) {
	entry := domain.NewTicketLog(ticketID, domain.TicketLogActionConvertToKB,
		indexingFailureNote(err), actor, "", s.now().UTC())
	if logErr := s.logs.Append(ctx, entry); logErr != nil {
		s.log.Error("failed to record indexing failure",
			"ticket_id", ticketID,
			"article_id", articleID,
			"error", logErr,
		)
	}
	telemetry.CaptureMessage(ctx, fmt.Sprintf("indexing failed for article %s: %v", articleID, err))
}

func indexingFailureNote(err error) string {
	var statusErr *indexing.StatusError
	var timeoutErr *indexing.TimeoutError
	switch {
	case errors.Is(err, indexing.ErrNotConfigured):
		return "Vector indexing skipped: index base URL is not configured"
	case errors.Is(err, indexing.ErrDispatcherClosed):
		return "Vector indexing skipped: server is shutting down"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Vector indexing failed: HTTP %d", statusErr.StatusCode)
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return "Vector indexing failed: request timed out"
	}
	return "Vector indexing failed: " + err.Error()
}

// BuildArticleFromTicket derives a draft article from a resolved ticket.
func BuildArticleFromTicket(t *domain.Ticket, id, createdBy string, at time.Time) *domain.Article {
	category := strings.TrimSpace(t.Meta.IssueCategory)
	alarm := strings.TrimSpace(t.Meta.AlarmCode)

	a := domain.NewArticle(id, t.TenantID, conversionTitle(t, category, alarm), createdBy, at)
	a.QuestionText = t.Description
	if strings.TrimSpace(a.QuestionText) == "" {
		a.QuestionText = placeholderQuestion
	}
	a.CauseText = conversionCause(category, alarm)
	a.SolutionText = t.FinalSolutionSummary
	a.ScopeJSON = conversionScope(t)

	tagCategory := category
	if tagCategory == "" {
		tagCategory = uncategorizedTag
	}
	a.Tags = strings.Join([]string{"ticket", t.TicketNo, tagCategory}, ",")

	a.SourceType = domain.SourceTypeTicket
	a.SourceID = t.ID
	return a
}

func conversionTitle(t *domain.Ticket, category, alarm string) string {
	if category == "" && alarm == "" {
		return fmt.Sprintf("[%s] %s", t.TicketNo, t.Title)
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{category, alarm, t.Title} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return fmt.Sprintf("[%s] %s", t.TicketNo, strings.Join(parts, " - "))
}

func conversionCause(category, alarm string) string {
	if category == "" {
		return placeholderCause
	}
	cause := "Issue category (AI classified): " + category
	if alarm != "" {
		cause += "\nAlarm code: " + alarm
	}
	return cause
}

func conversionScope(t *domain.Ticket) string {
	scope := make(map[string]string, 2)
	if t.DeviceMN != "" {
		scope["device_mn"] = t.DeviceMN
	}
	if t.DeviceID != "" {
		scope["device_id"] = t.DeviceID
	}
	if len(scope) == 0 {
		return ""
	}
	raw, err := json.Marshal(scope)
	if err != nil {
		return ""
	}
	return string(raw)
}
