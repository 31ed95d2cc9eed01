package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bregydoc/gtranslate"

	"github.com/minios-linux/propkit/settings"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderAzure  = "azure"
	ProviderGoogle = "google"
)

// DefaultAzureEndpoint is the global Azure Translator endpoint.
const DefaultAzureEndpoint = "https://api.cognitive.microsofttranslator.com"

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a machine translation service.
type Provider struct {
	// ID is the provider identifier (azure, google).
	ID string
	// Endpoint is the API base URL (Azure only).
	Endpoint string
	// APIKey is the subscription key (Azure only).
	APIKey string
	// Region is the Azure resource region sent with every request.
	Region string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// Translator translates a batch of strings. Results are in input order.
type Translator interface {
	Translate(ctx context.Context, texts []string, from, to string) ([]string, error)
}

// Batcher is implemented by translators that accept at most BatchSize
// strings per Translate call.
type Batcher interface {
	BatchSize() int
}

// NewTranslator builds the translator for prov.ID. An empty ID selects
// Azure. Azure requires an API key; its absence is reported as a
// settings.MissingCredentialError before any network I/O.
// logf, if not nil, receives debug output.
func NewTranslator(prov Provider, logf func(format string, args ...any)) (Translator, error) {
	if prov.Timeout <= 0 {
		prov.Timeout = DefaultTimeout
	}

	switch strings.ToLower(prov.ID) {
	case "", ProviderAzure:
		if strings.TrimSpace(prov.APIKey) == "" {
			return nil, &settings.MissingCredentialError{Provider: ProviderAzure, EnvVar: settings.APIKeyEnv}
		}
		endpoint := prov.Endpoint
		if endpoint == "" {
			endpoint = DefaultAzureEndpoint
		}
		return &AzureTranslator{
			Endpoint: strings.TrimRight(endpoint, "/"),
			APIKey:   prov.APIKey,
			Region:   prov.Region,
			client:   makeHTTPClient(prov.Proxy, prov.Timeout),
			logf:     logf,
		}, nil

	case ProviderGoogle:
		return &GoogleTranslator{logf: logf}, nil
	}

	return nil, fmt.Errorf("unknown provider %q (valid: %s, %s)", prov.ID, ProviderAzure, ProviderGoogle)
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// Azure Translator v3
// ---------------------------------------------------------------------------

// APIError is returned when the translation service answers with a non-200
// status. Body holds the response body verbatim.
type APIError struct {
	StatusCode int
	Body       string
	Region     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("translator API returned status %d (region %s): %s",
		e.StatusCode, e.Region, e.Body)
}

// AzureTranslator calls the Azure Translator v3 REST API. Each Translate
// call is exactly one request; failures are not retried.
type AzureTranslator struct {
	Endpoint string
	APIKey   string
	Region   string

	client *http.Client
	logf   func(format string, args ...any)
}

type azureRequestItem struct {
	Text string `json:"text"`
}

type azureResponseItem struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

func (a *AzureTranslator) debug(format string, args ...any) {
	if a.logf != nil {
		a.logf(format, args...)
	}
}

// Translate sends texts in a single request.
func (a *AzureTranslator) Translate(ctx context.Context, texts []string, from, to string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	items := make([]azureRequestItem, len(texts))
	for i, t := range texts {
		items[i] = azureRequestItem{Text: t}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	query := url.Values{}
	query.Set("api-version", "3.0")
	query.Set("from", from)
	query.Set("to", to)
	endpoint := a.Endpoint + "/translate?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.APIKey)
	req.Header.Set("Ocp-Apim-Subscription-Region", a.Region)
	req.Header.Set("Content-Type", "application/json")

	a.debug("POST %s (%d strings, %d bytes)", endpoint, len(texts), len(body))

	client := a.client
	if client == nil {
		client = makeHTTPClient("", DefaultTimeout)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody), Region: a.Region}
	}

	var decoded []azureResponseItem
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w (body: %s)", err, truncate(string(respBody), 200))
	}
	if len(decoded) != len(texts) {
		return nil, fmt.Errorf("expected %d translations, got %d", len(texts), len(decoded))
	}

	out := make([]string, len(decoded))
	for i, item := range decoded {
		if len(item.Translations) == 0 {
			return nil, fmt.Errorf("no translation returned for item %d", i+1)
		}
		out[i] = item.Translations[0].Text
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Google (free web endpoint)
// ---------------------------------------------------------------------------

// GoogleTranslator uses the unauthenticated Google Translate web endpoint.
// It has no batch API, so every string is a separate request.
type GoogleTranslator struct {
	logf func(format string, args ...any)

	// translate is swapped out in tests.
	translate func(text, from, to string) (string, error)
}

// BatchSize implements Batcher.
func (g *GoogleTranslator) BatchSize() int { return 1 }

// Translate translates texts one at a time, stopping at the first failure.
func (g *GoogleTranslator) Translate(ctx context.Context, texts []string, from, to string) ([]string, error) {
	call := g.translate
	if call == nil {
		call = googleTranslate
	}

	out := make([]string, 0, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if g.logf != nil {
			g.logf("google %s->%s: %s", from, to, truncate(t, 60))
		}
		res, err := call(t, from, to)
		if err != nil {
			return nil, fmt.Errorf("translating string %d/%d: %w", i+1, len(texts), err)
		}
		out = append(out, res)
	}
	return out, nil
}

func googleTranslate(text, from, to string) (string, error) {
	return gtranslate.TranslateWithParams(text, gtranslate.TranslationParams{
		From: from,
		To:   to,
	})
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
