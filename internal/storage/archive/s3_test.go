package archive

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"archive", "file.txt", "archive/file.txt"},
		{"archive/", "file.txt", "archive/file.txt"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	if _, err := NewS3(S3Config{}); err == nil {
		t.Error("expected error for missing bucket")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"reports/AAPL/2024-01-01/x.json": "application/json",
		"reports/AAPL/2024-01-01/x.csv":  "text/csv",
		"blob.bin":                       "application/octet-stream",
	}
	for path, want := range tests {
		if got := contentType(path); got != want {
			t.Errorf("contentType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&types.NotFound{}) {
		t.Error("types.NotFound should be not-found")
	}
	if !isNotFound(fmt.Errorf("head: %w", &types.NoSuchKey{})) {
		t.Error("wrapped NoSuchKey should be not-found")
	}
	if isNotFound(errors.New("connection refused")) {
		t.Error("plain error should not be not-found")
	}
}
