package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
	"github.com/iliyamo/lodging-reservation/internal/metrics"
	"github.com/iliyamo/lodging-reservation/internal/model"
)

// CustomerDirectoryService names the customer directory in logs, metrics
// and errors.
const CustomerDirectoryService = "customer-directory"

// CustomerDirectory resolves customer profiles by ID or by document.
type CustomerDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.Customer, error)
	GetByDocument(ctx context.Context, document string) (model.Customer, error)
}

type customerDTO struct {
	ID       uint64 `json:"id"`
	Document string `json:"document"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (d customerDTO) toModel() model.Customer {
	return model.Customer{ID: d.ID, Document: d.Document, FullName: d.FullName, Email: d.Email, Phone: d.Phone}
}

// HTTPCustomerDirectory is the live directory client.
//
//	GET {base}/customers/{id}
//	GET {base}/customers/document/{document}
type HTTPCustomerDirectory struct {
	baseURL string
	http    *http.Client
}

func NewHTTPCustomerDirectory(baseURL string, hc *http.Client) *HTTPCustomerDirectory {
	return &HTTPCustomerDirectory{baseURL: baseURL, http: hc}
}

func (c *HTTPCustomerDirectory) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	var dto customerDTO
	u := joinURL(c.baseURL, "customers", strconv.FormatUint(id, 10))
	if err := doJSON(ctx, c.http, CustomerDirectoryService, http.MethodGet, u, &dto); err != nil {
		return model.Customer{}, classify(err, CustomerDirectoryService, "customer %d not found", id)
	}
	return dto.toModel(), nil
}

func (c *HTTPCustomerDirectory) GetByDocument(ctx context.Context, document string) (model.Customer, error) {
	var dto customerDTO
	u := joinURL(c.baseURL, "customers", "document", url.PathEscape(document))
	if err := doJSON(ctx, c.http, CustomerDirectoryService, http.MethodGet, u, &dto); err != nil {
		return model.Customer{}, classify(err, CustomerDirectoryService, "customer with document %s not found", document)
	}
	return dto.toModel(), nil
}

// FallbackCustomerDirectory answers ErrServiceUnavailable for every call.
type FallbackCustomerDirectory struct {
	logger *slog.Logger
}

func NewFallbackCustomerDirectory(logger *slog.Logger) *FallbackCustomerDirectory {
	return &FallbackCustomerDirectory{logger: logger}
}

func (f *FallbackCustomerDirectory) unavailable(op string, args ...any) error {
	metrics.FallbackCalls.WithLabelValues(CustomerDirectoryService, op).Inc()
	f.logger.Warn("circuit breaker active: customer directory unavailable", append([]any{"operation", op}, args...)...)
	return apperror.Unavailable(CustomerDirectoryService, nil)
}

func (f *FallbackCustomerDirectory) GetByID(_ context.Context, id uint64) (model.Customer, error) {
	return model.Customer{}, f.unavailable("get_by_id", "customer_id", id)
}

func (f *FallbackCustomerDirectory) GetByDocument(_ context.Context, document string) (model.Customer, error) {
	return model.Customer{}, f.unavailable("get_by_document", "document", document)
}

// ResilientCustomerDirectory routes directory calls through a Breaker.
type ResilientCustomerDirectory struct {
	live     CustomerDirectory
	fallback CustomerDirectory
	breaker  *Breaker
}

func NewResilientCustomerDirectory(live, fallback CustomerDirectory, breaker *Breaker) *ResilientCustomerDirectory {
	return &ResilientCustomerDirectory{live: live, fallback: fallback, breaker: breaker}
}

func (c *ResilientCustomerDirectory) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	return guard(ctx, c.breaker,
		func(ctx context.Context) (model.Customer, error) { return c.live.GetByID(ctx, id) },
		func(ctx context.Context) (model.Customer, error) { return c.fallback.GetByID(ctx, id) },
	)
}

func (c *ResilientCustomerDirectory) GetByDocument(ctx context.Context, document string) (model.Customer, error) {
	return guard(ctx, c.breaker,
		func(ctx context.Context) (model.Customer, error) { return c.live.GetByDocument(ctx, document) },
		func(ctx context.Context) (model.Customer, error) { return c.fallback.GetByDocument(ctx, document) },
	)
}
