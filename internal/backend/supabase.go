package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultSupabaseTimeout = 30 * time.Second

type generateObligationsArgs struct {
	CompanyID *int64 `json:"p_company_id"`
	Year      int    `json:"p_year"`
	Month     int    `json:"p_month"`
}

// SupabaseBackend talks to the PostgREST API of a Supabase project using the
// service role key.
type SupabaseBackend struct {
	client   *resty.Client
	endpoint string
}

func NewSupabaseBackend(settings Settings, timeout time.Duration) (*SupabaseBackend, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultSupabaseTimeout
	}
	client.SetTimeout(timeout)

	return NewSupabaseBackendWithClient(settings, client)
}

func NewSupabaseBackendWithClient(settings Settings, client *resty.Client) (*SupabaseBackend, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(settings.Endpoint), "/")
	key := strings.TrimSpace(settings.Credential)
	if endpoint == "" || key == "" {
		return nil, configurationError("supabase url and service role key are required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, configurationError("invalid supabase url: %v", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSupabaseTimeout)
	}
	// Every invocation makes a single attempt; the timer is the only retry path.
	client.SetRetryCount(0)
	client.SetHeader("apikey", key)
	client.SetAuthToken(key)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Content-Type", "application/json")

	return &SupabaseBackend{
		client:   client,
		endpoint: endpoint,
	}, nil
}

// NewSupabaseFactory returns a Factory building a fresh client per invocation.
func NewSupabaseFactory(timeout time.Duration) Factory {
	return FactoryFunc(func(ctx context.Context, settings Settings) (Backend, error) {
		return NewSupabaseBackend(settings, timeout)
	})
}

func (b *SupabaseBackend) GenerateMonthlyObligations(ctx context.Context, params domain.GenerationParams) ([]domain.ObligationResult, error) {
	args := generateObligationsArgs{
		CompanyID: params.CompanyID,
		Year:      params.Year,
		Month:     params.Month,
	}

	var rows []domain.ObligationResult
	if err := b.rpc(ctx, ProcGenerateMonthlyObligations, args, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (b *SupabaseBackend) CheckPendingObligations(ctx context.Context) ([]domain.NotificationCheckResult, error) {
	var rows []domain.NotificationCheckResult
	if err := b.rpc(ctx, ProcCheckPendingObligations, struct{}{}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (b *SupabaseBackend) InsertExecutionLog(ctx context.Context, log *domain.ExecutionLog) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("supabase backend is not initialized")
	}
	if err := log.Validate(); err != nil {
		return fmt.Errorf("invalid execution log: %w", err)
	}

	response, err := b.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(log).
		Post(b.endpoint + "/rest/v1/" + ExecutionLogTable)
	if err != nil {
		return fmt.Errorf("insert %s request failed: %w", ExecutionLogTable, err)
	}
	if !isSuccessStatus(response.StatusCode()) {
		return remoteErrorFromResponse(response)
	}
	return nil
}

// rpc calls a Postgres function through PostgREST and decodes the result
// into out, which must point to a slice. A function returning a single
// composite value yields a JSON object; it is decoded as a one-element slice.
func (b *SupabaseBackend) rpc(ctx context.Context, fn string, args any, out any) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("supabase backend is not initialized")
	}

	response, err := b.client.R().
		SetContext(ctx).
		SetBody(args).
		Post(b.endpoint + "/rest/v1/rpc/" + fn)
	if err != nil {
		return fmt.Errorf("rpc %s request failed: %w", fn, err)
	}
	if !isSuccessStatus(response.StatusCode()) {
		return remoteErrorFromResponse(response)
	}

	body := bytes.TrimSpace(response.Body())
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if body[0] == '{' {
		body = append(append([]byte{'['}, body...), ']')
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode rpc %s response: %w", fn, err)
	}
	return nil
}

func isSuccessStatus(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

func remoteErrorFromResponse(response *resty.Response) *domain.RemoteError {
	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	remoteErr := &domain.RemoteError{StatusCode: statusCode}
	// PostgREST reports {code, details, hint, message}; anything else becomes
	// the message verbatim. A JSON body is kept whole as the payload.
	if json.Valid([]byte(body)) {
		remoteErr.Payload = json.RawMessage(body)
		_ = json.Unmarshal([]byte(body), remoteErr)
	}
	if strings.TrimSpace(remoteErr.Message) == "" {
		remoteErr.Message = remoteErrorMessage(statusCode, body)
	}
	return remoteErr
}

func remoteErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("backend returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
