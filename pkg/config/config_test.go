package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.VectorDim != defaultVectorDim {
		t.Errorf("VectorDim = %d, want %d", cfg.VectorDim, defaultVectorDim)
	}
	if cfg.InlineBlobMaxBytes != defaultInlineBlobBytes {
		t.Errorf("InlineBlobMaxBytes = %d, want %d", cfg.InlineBlobMaxBytes, defaultInlineBlobBytes)
	}
	if cfg.BlobURLTTLSeconds != defaultBlobURLTTL {
		t.Errorf("BlobURLTTLSeconds = %d, want %d", cfg.BlobURLTTLSeconds, defaultBlobURLTTL)
	}
	if cfg.PBKDF2Iterations != defaultPBKDF2Iterations {
		t.Errorf("PBKDF2Iterations = %d, want %d", cfg.PBKDF2Iterations, defaultPBKDF2Iterations)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envVectorDim, "768")
	t.Setenv(envAPIURL, "https://sync.example.com")
	t.Setenv(envInlineBlobMaxBytes, "not-a-number")

	cfg := Load()

	if cfg.VectorDim != 768 {
		t.Errorf("VectorDim = %d, want 768", cfg.VectorDim)
	}
	if cfg.APIURL != "https://sync.example.com" {
		t.Errorf("APIURL = %q, want the override", cfg.APIURL)
	}
	if cfg.InlineBlobMaxBytes != defaultInlineBlobBytes {
		t.Errorf("InlineBlobMaxBytes should fall back to default on parse failure, got %d", cfg.InlineBlobMaxBytes)
	}
}
