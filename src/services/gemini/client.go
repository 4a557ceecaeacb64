package gemini

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ClientConfig selects between the Gemini API (API key) and Vertex AI
// (project + application default credentials).
type ClientConfig struct {
	APIKey   string
	Project  string
	Location string
}

func (c ClientConfig) configured() bool {
	return c.APIKey != "" || c.Project != ""
}

// lazyClient builds the genai client on first use so a missing credential
// only surfaces when a call is made.
type lazyClient struct {
	config ClientConfig

	mu     sync.Mutex
	client *genai.Client
}

func (l *lazyClient) get(ctx context.Context) (*genai.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	if !l.config.configured() {
		return nil, voiceerr.Unavailable("gemini", "GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT not set")
	}

	cc := &genai.ClientConfig{}
	if l.config.APIKey != "" {
		cc.APIKey = l.config.APIKey
		cc.Backend = genai.BackendGeminiAPI
	} else {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: []string{cloudPlatformScope},
		})
		if err != nil {
			return nil, voiceerr.Unavailable("gemini", fmt.Sprintf("vertex credentials: %v", err))
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = l.config.Project
		cc.Location = l.config.Location
		cc.Credentials = creds
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, voiceerr.Unavailable("gemini", fmt.Sprintf("create client: %v", err))
	}
	l.client = client
	return client, nil
}
