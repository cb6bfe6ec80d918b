package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseJobNameFromString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input   string
		want    JobName
		wantErr bool
	}{
		{input: "generate-obligations", want: JobGenerateObligations},
		{input: " Check-Notifications ", want: JobCheckNotifications},
		{input: "purge-everything", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseJobNameFromString(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("job = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExecutionLogValidate(t *testing.T) {
	t.Parallel()

	msg := "boom"
	blank := "  "
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		log     *ExecutionLog
		wantErr bool
	}{
		{name: "nil log", log: nil, wantErr: true},
		{name: "success", log: &ExecutionLog{CronName: JobGenerateObligations, ExecutionTime: now, Status: ExecutionSuccess}},
		{name: "error with message", log: &ExecutionLog{CronName: JobCheckNotifications, ExecutionTime: now, Status: ExecutionError, ErrorMessage: &msg}},
		{name: "error without message", log: &ExecutionLog{CronName: JobCheckNotifications, ExecutionTime: now, Status: ExecutionError}, wantErr: true},
		{name: "error with blank message", log: &ExecutionLog{CronName: JobCheckNotifications, ExecutionTime: now, Status: ExecutionError, ErrorMessage: &blank}, wantErr: true},
		{name: "unknown cron name", log: &ExecutionLog{CronName: "nope", ExecutionTime: now, Status: ExecutionSuccess}, wantErr: true},
		{name: "unknown status", log: &ExecutionLog{CronName: JobGenerateObligations, ExecutionTime: now, Status: "done"}, wantErr: true},
		{name: "zero time", log: &ExecutionLog{CronName: JobGenerateObligations, Status: ExecutionSuccess}, wantErr: true},
		{name: "negative duration", log: &ExecutionLog{CronName: JobGenerateObligations, ExecutionTime: now, Status: ExecutionSuccess, ExecutionDurationMs: -1}, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.log.Validate()
			if tc.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("VET", -4*60*60)
	ts := time.Date(2025, 6, 30, 22, 15, 1, 123456789, loc)

	if got := FormatTimestamp(ts); got != "2025-07-01T02:15:01.123Z" {
		t.Fatalf("FormatTimestamp() = %s, want 2025-07-01T02:15:01.123Z", got)
	}
}

func TestSummarizeGeneration(t *testing.T) {
	t.Parallel()

	rows := []ObligationResult{
		{ObligationsCreated: 3, ObligationsSkipped: 1},
		{ObligationsCreated: 0, ObligationsSkipped: 2},
	}

	got := SummarizeGeneration(rows)
	want := GenerationSummary{TotalCreated: 3, TotalSkipped: 3, CompaniesProcessed: 2}
	if got != want {
		t.Fatalf("summary = %+v, want %+v", got, want)
	}

	if empty := SummarizeGeneration(nil); empty != (GenerationSummary{}) {
		t.Fatalf("empty summary = %+v, want zero value", empty)
	}
}

func TestNewObligationResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantCreated int
		wantSkipped int
	}{
		{name: "counters and extra columns", raw: `{"company_id":7,"obligations_created":3,"obligations_skipped":1,"period":"2025-06"}`, wantCreated: 3, wantSkipped: 1},
		{name: "non object details column", raw: `{"obligations_created":2,"details":"2025-06"}`, wantCreated: 2},
		{name: "non numeric counters", raw: `{"obligations_created":"3","obligations_skipped":null}`},
		{name: "scalar row", raw: `42`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			row := NewObligationResult([]byte(tt.raw))
			if row.ObligationsCreated != tt.wantCreated || row.ObligationsSkipped != tt.wantSkipped {
				t.Fatalf("counters = %d/%d, want %d/%d", row.ObligationsCreated, row.ObligationsSkipped, tt.wantCreated, tt.wantSkipped)
			}

			encoded, err := json.Marshal(row)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(encoded) != tt.raw {
				t.Fatalf("encoded = %s, want %s", encoded, tt.raw)
			}
		})
	}
}

func TestObligationResultWithoutRawRow(t *testing.T) {
	t.Parallel()

	encoded, err := json.Marshal(ObligationResult{ObligationsCreated: 1, ObligationsSkipped: 2})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(encoded) != `{"obligations_created":1,"obligations_skipped":2}` {
		t.Fatalf("encoded = %s", encoded)
	}
}

func TestRemoteErrorMarshalsPayload(t *testing.T) {
	t.Parallel()

	payload := `{"code":"P0001","message":"bad period","details":{"month":13},"trace_id":"abc"}`
	withPayload := &RemoteError{Message: "bad period", Code: "P0001", Payload: json.RawMessage(payload)}
	encoded, err := json.Marshal(withPayload)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(encoded) != payload {
		t.Fatalf("encoded = %s, want %s", encoded, payload)
	}

	encoded, err = json.Marshal(&RemoteError{StatusCode: 500, Message: "boom", Code: "XX000"})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(encoded) != `{"message":"boom","code":"XX000"}` {
		t.Fatalf("encoded = %s", encoded)
	}
}

func TestSummarizeNotificationCheck(t *testing.T) {
	t.Parallel()

	got := SummarizeNotificationCheck(NotificationCheckResult{
		NotificationsCreated: 2,
		ObligationsChecked:   10,
		Details: []NotificationDetail{
			{ObligationID: 1, NotificationType: "reminder"},
			{ObligationID: 2, NotificationType: "overdue"},
		},
	})

	want := NotificationSummary{NotificationsCreated: 2, ObligationsChecked: 10, NotificationsSent: 2}
	if got != want {
		t.Fatalf("summary = %+v, want %+v", got, want)
	}
}

func TestRemoteError(t *testing.T) {
	t.Parallel()

	remote := &RemoteError{Message: "function does not exist", Code: "42883"}
	if got := remote.Error(); got != "remote error: code=42883: function does not exist" {
		t.Fatalf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("rpc failed: %w", remote)
	got, ok := AsRemoteError(wrapped)
	if !ok {
		t.Fatal("expected wrapped remote error to be found")
	}
	if got != remote {
		t.Fatal("AsRemoteError returned a different error")
	}

	if _, ok := AsRemoteError(errors.New("dial tcp: refused")); ok {
		t.Fatal("plain error should not be a remote error")
	}
}

func TestGenerationParamsValidate(t *testing.T) {
	t.Parallel()

	company := int64(9)
	zero := int64(0)

	testCases := []struct {
		name    string
		params  GenerationParams
		wantErr bool
	}{
		{name: "all companies", params: GenerationParams{Year: 2025, Month: 6}},
		{name: "single company", params: GenerationParams{CompanyID: &company, Year: 2025, Month: 12}},
		{name: "month zero", params: GenerationParams{Year: 2025, Month: 0}, wantErr: true},
		{name: "month thirteen", params: GenerationParams{Year: 2025, Month: 13}, wantErr: true},
		{name: "year zero", params: GenerationParams{Year: 0, Month: 1}, wantErr: true},
		{name: "company zero", params: GenerationParams{CompanyID: &zero, Year: 2025, Month: 1}, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.params.Validate()
			if tc.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
