package storage

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestContainsAny(t *testing.T) {
	tests := []struct {
		s        string
		substrs  []string
		expected bool
	}{
		{"connection refused", []string{"connection", "timeout"}, true},
		{"request timeout", []string{"connection", "timeout"}, true},
		{"success", []string{"connection", "timeout"}, false},
		{"", []string{"connection"}, false},
		{"connection", nil, false},
		{"TIMEOUT", []string{"timeout"}, false},
	}

	for _, tt := range tests {
		if got := containsAny(tt.s, tt.substrs...); got != tt.expected {
			t.Errorf("containsAny(%q, %v) = %v, want %v", tt.s, tt.substrs, got, tt.expected)
		}
	}
}

func TestClassifyStorageError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"NoSuchKey", minio.ErrorResponse{Code: "NoSuchKey"}, ErrObjectNotFound},
		{"NoSuchBucket", minio.ErrorResponse{Code: "NoSuchBucket"}, ErrObjectNotFound},
		{"AccessDenied", minio.ErrorResponse{Code: "AccessDenied"}, ErrAccessDenied},
		{"SignatureDoesNotMatch", minio.ErrorResponse{Code: "SignatureDoesNotMatch"}, ErrAccessDenied},
		{"dial failure", errors.New("dial tcp: connection refused"), ErrNetworkError},
		{"timeout", errors.New("context deadline exceeded: timeout"), ErrNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStorageError(tt.err, "get")
			if !errors.Is(got, tt.expected) {
				t.Errorf("classifyStorageError(%v) = %v, want wrapping %v", tt.err, got, tt.expected)
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		if err := classifyStorageError(nil, "get"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("unknown is wrapped", func(t *testing.T) {
		orig := errors.New("some unknown error")
		got := classifyStorageError(orig, "put")
		if !errors.Is(got, orig) {
			t.Errorf("expected %v to wrap the original error", got)
		}
		for _, sentinel := range []error{ErrObjectNotFound, ErrAccessDenied, ErrNetworkError} {
			if errors.Is(got, sentinel) {
				t.Errorf("unknown error should not classify as %v", sentinel)
			}
		}
	})
}
