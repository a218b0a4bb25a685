package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"sentinel rate limited", fmt.Errorf("call failed: %w", ErrRateLimited), true},
		{"api error 429", &APIError{StatusCode: 429}, true},
		{"api error 429 permanent", &APIError{StatusCode: 429, IsPermanent: true}, false},
		{"message with 429", errors.New("got 429 from upstream"), true},
		{"message with rate limit", errors.New("rate limit exceeded"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsQuotaError(t *testing.T) {
	t.Parallel()

	if !IsQuotaError(&APIError{Code: "insufficient_quota"}) {
		t.Error("Expected insufficient_quota code to be a quota error")
	}
	if !IsQuotaError(errors.New("insufficient_quota: check billing")) {
		t.Error("Expected insufficient_quota message to be a quota error")
	}
	if IsQuotaError(errors.New("timeout")) {
		t.Error("Expected timeout not to be a quota error")
	}
}

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	err := errors.New(`POST failed: 429 {"message":"Rate limit reached","type":"rate_limit_error","code":"rate_limit_exceeded"}`)
	apiErr := ExtractAPIError(err)
	if apiErr == nil {
		t.Fatal("Expected APIError, got nil")
	}
	if apiErr.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.Message != "Rate limit reached" {
		t.Errorf("Message = %q, want parsed JSON message", apiErr.Message)
	}
	if apiErr.IsPermanent {
		t.Error("Expected rate_limit_exceeded to be transient")
	}

	quotaErr := errors.New(`429 {"message":"You exceeded your quota","type":"insufficient_quota","code":"insufficient_quota"}`)
	apiErr = ExtractAPIError(quotaErr)
	if apiErr == nil {
		t.Fatal("Expected APIError for quota error, got nil")
	}
	if !apiErr.IsPermanent {
		t.Error("Expected insufficient_quota to be permanent")
	}

	if ExtractAPIError(errors.New("500 internal server error")) != nil {
		t.Error("Expected nil for non-429 errors")
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	rateLimitErr := &APIError{StatusCode: 429}
	if d := GetRetryDelay(rateLimitErr, 0); d != 60*time.Second {
		t.Errorf("rate limit attempt 0 delay = %v, want 60s", d)
	}
	if d := GetRetryDelay(rateLimitErr, 20); d != 15*time.Minute {
		t.Errorf("rate limit delay should cap at 15m, got %v", d)
	}

	quotaErr := &APIError{StatusCode: 429, IsPermanent: true}
	if d := GetRetryDelay(quotaErr, 0); d != time.Hour {
		t.Errorf("quota attempt 0 delay = %v, want 1h", d)
	}
	if d := GetRetryDelay(quotaErr, 30); d != 24*time.Hour {
		t.Errorf("quota delay should cap at 24h, got %v", d)
	}

	if d := GetRetryDelay(errors.New("boom"), 0); d != 5*time.Second {
		t.Errorf("default attempt 0 delay = %v, want 5s", d)
	}
}

func TestContextCarriers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = WithUserID(ctx, "user-1")
	ctx = WithContentID(ctx, "content-2")
	ctx = WithRequestID(ctx, "req-3")

	if got := ExtractUserID(ctx); got != "user-1" {
		t.Errorf("ExtractUserID = %q, want user-1", got)
	}
	if got := ExtractContentID(ctx); got != "content-2" {
		t.Errorf("ExtractContentID = %q, want content-2", got)
	}
	if got := ExtractRequestID(ctx); got != "req-3" {
		t.Errorf("ExtractRequestID = %q, want req-3", got)
	}
	if got := ExtractRequestID(context.Background()); got != "" {
		t.Errorf("ExtractRequestID on empty context = %q, want empty", got)
	}
}
