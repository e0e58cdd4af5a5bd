package adk

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/emergent-company/deathrecord/internal/config"
	"google.golang.org/genai"
)

func TestNewModelFactory(t *testing.T) {
	cfg := &config.LLMConfig{
		GCPProjectID:     "test-project",
		VertexAILocation: "us-central1",
		Model:            "gemini-1.5-pro",
		MaxOutputTokens:  8192,
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	factory := NewModelFactory(cfg, log)

	if factory == nil {
		t.Fatal("NewModelFactory returned nil")
	}
	if factory.cfg != cfg {
		t.Error("NewModelFactory didn't set config")
	}
	if factory.log != log {
		t.Error("NewModelFactory didn't set logger")
	}
}

func TestModelFactoryCreateModelWithName_ValidationErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name      string
		cfg       *config.LLMConfig
		modelName string
		wantErr   string
	}{
		{
			name: "missing GCP project ID",
			cfg: &config.LLMConfig{
				GCPProjectID:     "",
				VertexAILocation: "us-central1",
			},
			modelName: "gemini-1.5-pro",
			wantErr:   "GCP project ID is required for Vertex AI",
		},
		{
			name: "missing Vertex AI location",
			cfg: &config.LLMConfig{
				GCPProjectID:     "test-project",
				VertexAILocation: "",
			},
			modelName: "gemini-1.5-pro",
			wantErr:   "Vertex AI location is required",
		},
		{
			name: "missing model name",
			cfg: &config.LLMConfig{
				GCPProjectID:     "test-project",
				VertexAILocation: "us-central1",
			},
			modelName: "",
			wantErr:   "model name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewModelFactory(tt.cfg, log)
			_, err := factory.CreateModelWithName(context.Background(), tt.modelName)

			if err == nil {
				t.Error("CreateModelWithName() expected error, got nil")
			} else if err.Error() != tt.wantErr {
				t.Errorf("CreateModelWithName() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestModelFactorySynthesisGenerateConfig(t *testing.T) {
	cfg := &config.LLMConfig{
		MaxOutputTokens: 8192,
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	factory := NewModelFactory(cfg, log)

	schema := &genai.Schema{
		Type:     genai.TypeObject,
		Required: []string{"narrativeSummary"},
		Properties: map[string]*genai.Schema{
			"narrativeSummary": {Type: genai.TypeString},
		},
	}

	gc := factory.SynthesisGenerateConfig(schema)

	if gc == nil {
		t.Fatal("SynthesisGenerateConfig returned nil")
	}
	if gc.Temperature == nil || *gc.Temperature != 0.0 {
		t.Errorf("SynthesisGenerateConfig Temperature = %v, want 0.0", gc.Temperature)
	}
	if gc.MaxOutputTokens != 8192 {
		t.Errorf("SynthesisGenerateConfig MaxOutputTokens = %d, want 8192", gc.MaxOutputTokens)
	}
	if gc.ResponseMIMEType != "application/json" {
		t.Errorf("SynthesisGenerateConfig ResponseMIMEType = %q, want application/json", gc.ResponseMIMEType)
	}
	if gc.ResponseSchema != schema {
		t.Error("SynthesisGenerateConfig ResponseSchema doesn't match input schema")
	}
}

func TestModelFactoryGroundedSearchGenerateConfig(t *testing.T) {
	cfg := &config.LLMConfig{
		MaxOutputTokens:           4096,
		GroundedSearchTemperature: 0.3,
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	factory := NewModelFactory(cfg, log)

	gc := factory.GroundedSearchGenerateConfig()

	if gc == nil {
		t.Fatal("GroundedSearchGenerateConfig returned nil")
	}
	if gc.Temperature == nil || *gc.Temperature != 0.3 {
		t.Errorf("GroundedSearchGenerateConfig Temperature = %v, want 0.3", gc.Temperature)
	}
	if len(gc.Tools) != 1 || gc.Tools[0].GoogleSearch == nil {
		t.Error("GroundedSearchGenerateConfig should attach the Google Search grounding tool")
	}
}

func TestModelFactoryIsEnabled(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name string
		cfg  *config.LLMConfig
		want bool
	}{
		{
			name: "enabled with all fields",
			cfg: &config.LLMConfig{
				GCPProjectID:     "test-project",
				VertexAILocation: "us-central1",
				Model:            "gemini-1.5-pro",
			},
			want: true,
		},
		{
			name: "disabled without project",
			cfg: &config.LLMConfig{
				GCPProjectID:     "",
				VertexAILocation: "us-central1",
				Model:            "gemini-1.5-pro",
			},
			want: false,
		},
		{
			name: "disabled without location",
			cfg: &config.LLMConfig{
				GCPProjectID:     "test-project",
				VertexAILocation: "",
				Model:            "gemini-1.5-pro",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewModelFactory(tt.cfg, log)
			got := factory.IsEnabled()
			if got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelFactoryModelName(t *testing.T) {
	cfg := &config.LLMConfig{
		Model: "gemini-1.5-flash",
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	factory := NewModelFactory(cfg, log)

	got := factory.ModelName()
	if got != "gemini-1.5-flash" {
		t.Errorf("ModelName() = %q, want %q", got, "gemini-1.5-flash")
	}
}

func TestPtrFloat32(t *testing.T) {
	tests := []struct {
		name  string
		value float32
	}{
		{"zero", 0.0},
		{"positive", 0.5},
		{"negative", -0.5},
		{"one", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr := ptrFloat32(tt.value)
			if ptr == nil {
				t.Fatal("ptrFloat32 returned nil")
			}
			if *ptr != tt.value {
				t.Errorf("ptrFloat32(%f) = %f, want %f", tt.value, *ptr, tt.value)
			}
		})
	}
}

func TestProvideModelFactory(t *testing.T) {
	cfg := &config.Config{
		LLM: config.LLMConfig{
			GCPProjectID:     "test-project",
			VertexAILocation: "us-central1",
			Model:            "gemini-1.5-pro",
			MaxOutputTokens:  8192,
		},
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	factory := provideModelFactory(cfg, log)

	if factory == nil {
		t.Fatal("provideModelFactory returned nil")
	}
	if factory.cfg.GCPProjectID != "test-project" {
		t.Errorf("provideModelFactory cfg.GCPProjectID = %q, want %q", factory.cfg.GCPProjectID, "test-project")
	}
	if factory.cfg.Model != "gemini-1.5-pro" {
		t.Errorf("provideModelFactory cfg.Model = %q, want %q", factory.cfg.Model, "gemini-1.5-pro")
	}
}

func TestModelFactoryCreateModel_ValidationErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name    string
		cfg     *config.LLMConfig
		wantErr string
	}{
		{
			name: "missing GCP project ID",
			cfg: &config.LLMConfig{
				GCPProjectID:     "",
				VertexAILocation: "us-central1",
				Model:            "gemini-1.5-pro",
			},
			wantErr: "GCP project ID is required for Vertex AI",
		},
		{
			name: "missing Vertex AI location",
			cfg: &config.LLMConfig{
				GCPProjectID:     "test-project",
				VertexAILocation: "",
				Model:            "gemini-1.5-pro",
			},
			wantErr: "Vertex AI location is required",
		},
		{
			name: "missing model name (uses config's empty model)",
			cfg: &config.LLMConfig{
				GCPProjectID:     "test-project",
				VertexAILocation: "us-central1",
				Model:            "",
			},
			wantErr: "model name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewModelFactory(tt.cfg, log)
			_, err := factory.CreateModel(context.Background())

			if err == nil {
				t.Error("CreateModel() expected error, got nil")
			} else if err.Error() != tt.wantErr {
				t.Errorf("CreateModel() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}
