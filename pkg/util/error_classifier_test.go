package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	cases := []struct {
		name      string
		err       error
		retryable bool
		class     string
	}{
		{"nil", nil, false, ""},
		{"json", syntaxErr, false, "json_decode_error"},
		{"deadline", fmt.Errorf("family f1: %w", context.DeadlineExceeded), true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), false, "not_found"},
		{"unique", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"serialization", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), true, "serialization_failure"},
		{"connection", &pgconn.PgError{Code: "08006"}, true, "db_connection_error"},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false, "db_schema_error"},
		{"refused", errors.New("dial tcp: connection refused"), true, "db_connection_error"},
		{"other", errors.New("boom"), false, "unknown_error"},
	}

	for _, tc := range cases {
		retryable, class := IsRetryableError(tc.err)
		if retryable != tc.retryable || class != tc.class {
			t.Fatalf("%s: got (%v,%q); want (%v,%q)", tc.name, retryable, class, tc.retryable, tc.class)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	if ShouldRetry(1, 3, false) {
		t.Fatalf("non-retryable errors must not retry")
	}
	if !ShouldRetry(3, 3, true) {
		t.Fatalf("retry count equal to max should still retry")
	}
	if ShouldRetry(4, 3, true) {
		t.Fatalf("retry count above max must stop")
	}
}
