package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// StartRepositorySpan creates a new span for a repository operation
// Returns nil if Sentry is not available in the context
func StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	name := "repository." + repository + "." + operation
	span := sentry.StartSpan(ctx, name)
	span.Description = name
	span.Op = "db.postgres"
	span.SetData("repository", repository)
	span.SetData("operation", operation)
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

// FinishSpan safely finishes a span, handling nil spans
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

// SetSpanError marks a span as failed and adds error information
func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// pqErrorCode returns the SQLSTATE and constraint of a postgres error, if err is one
func pqErrorCode(err error) (code string, constraint string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// whereBuilder collects AND-ed conditions and their named parameters
type whereBuilder struct {
	conds  []string
	params map[string]interface{}
}

func newTenantWhere(ctx context.Context, alias string) *whereBuilder {
	w := &whereBuilder{params: map[string]interface{}{}}
	w.add(alias+"tenant_id = :tenant_id", "tenant_id", types.GetTenantID(ctx))
	w.add(alias+"status = :status", "status", types.StatusPublished)
	return w
}

func (w *whereBuilder) add(cond string, name string, value interface{}) {
	w.conds = append(w.conds, cond)
	w.params[name] = value
}

func (w *whereBuilder) String() string {
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders ORDER BY for a whitelisted column, falling back to the default
func orderBy(filter *types.QueryFilter, allowed map[string]bool, fallback string) string {
	sort := filter.GetSort()
	if !allowed[sort] {
		sort = fallback
	}
	order := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		order = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", sort, order, order)
}

// paginate renders LIMIT/OFFSET, or nothing for unlimited filters
func paginate(filter *types.QueryFilter, params map[string]interface{}) string {
	if filter.IsUnlimited() {
		if filter.GetOffset() > 0 {
			params["offset"] = filter.GetOffset()
			return "OFFSET :offset"
		}
		return ""
	}
	params["limit"] = filter.GetLimit()
	params["offset"] = filter.GetOffset()
	return "LIMIT :limit OFFSET :offset"
}
