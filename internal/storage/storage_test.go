package storage

import (
	"strings"
	"testing"

	"github.com/emergent-company/deathrecord/internal/config"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "unnamed"},
		{"simple filename", "document.pdf", "document.pdf"},
		{"uppercase to lowercase", "DOCUMENT.PDF", "document.pdf"},
		{"mixed case", "MyDocument.PDF", "mydocument.pdf"},
		{"spaces replaced with underscore", "my document.pdf", "my_document.pdf"},
		{"multiple spaces collapsed", "my   document.pdf", "my_document.pdf"},
		{"special characters replaced", "doc@#$%file.pdf", "doc_file.pdf"},
		{"leading underscore trimmed", "_document.pdf", "document.pdf"},
		{"multiple underscores collapsed", "doc___file.pdf", "doc_file.pdf"},
		{"parentheses replaced", "document (1).pdf", "document_1_.pdf"},
		{"dashes preserved", "my-document.pdf", "my-document.pdf"},
		{"numbers preserved", "file123.pdf", "file123.pdf"},
		{"dots preserved", "file.backup.pdf", "file.backup.pdf"},
		{"all special chars becomes unnamed", "@#$%^&*()", "unnamed"},
		{"very long filename truncated", strings.Repeat("a", 300), strings.Repeat("a", 200)},
		{"newlines replaced", "doc\nfile.pdf", "doc_file.pdf"},
		{"tabs replaced", "doc\tfile.pdf", "doc_file.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGenerateRawSourceKey(t *testing.T) {
	tests := []struct {
		name    string
		actorID string
		runID   string
	}{
		{"normal ids", "actor-123", "run-456"},
		{"ids with spaces", "actor 123", "run 456"},
		{"empty ids", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateRawSourceKey(tt.actorID, tt.runID)
			expected := SanitizeFilename(tt.actorID) + "/" + SanitizeFilename(tt.runID) + ".json"
			if result != expected {
				t.Errorf("GenerateRawSourceKey() = %q, want %q", result, expected)
			}
		})
	}
}

func TestStorageConfig_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   config.StorageConfig
		expected bool
	}{
		{"empty config", config.StorageConfig{}, false},
		{"only endpoint set", config.StorageConfig{Endpoint: "http://localhost:9000"}, false},
		{
			name: "endpoint and access key set",
			config: config.StorageConfig{
				Endpoint:    "http://localhost:9000",
				AccessKeyID: "minioadmin",
			},
			expected: false,
		},
		{
			name: "all required fields set",
			config: config.StorageConfig{
				Endpoint:        "http://localhost:9000",
				AccessKeyID:     "minioadmin",
				SecretAccessKey: "minioadmin",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsConfigured()
			if result != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestService_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		service  Service
		expected bool
	}{
		{"nil client", Service{client: nil}, false},
		{"empty service", Service{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.service.Enabled()
			if result != tt.expected {
				t.Errorf("Service.Enabled() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestUploadOptions(t *testing.T) {
	opts := UploadOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"actor_id": "actor-123",
		},
	}

	if opts.ContentType != "application/json" {
		t.Errorf("ContentType = %q, want application/json", opts.ContentType)
	}
	if len(opts.Metadata) != 1 {
		t.Errorf("Metadata length = %d, want 1", len(opts.Metadata))
	}
}

func TestUploadResult(t *testing.T) {
	result := UploadResult{
		Key:         "actor-123/run-456.json",
		Bucket:      "raw-sources",
		ETag:        "abc123",
		Size:        1024,
		ContentType: "application/json",
	}

	if result.Key != "actor-123/run-456.json" {
		t.Errorf("Key = %q, want actor-123/run-456.json", result.Key)
	}
	if result.Bucket != "raw-sources" {
		t.Errorf("Bucket = %q, want raw-sources", result.Bucket)
	}
	if result.Size != 1024 {
		t.Errorf("Size = %d, want 1024", result.Size)
	}
}
