package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/propkit/settings"
)

// azureEcho answers like Azure Translator, prefixing every text with "<to>:".
func azureEcho(t *testing.T, calls *int32, check func(r *http.Request, body []azureRequestItem)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		var body []azureRequestItem
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if check != nil {
			check(r, body)
		}

		to := r.URL.Query().Get("to")
		resp := make([]map[string]any, len(body))
		for i, item := range body {
			resp[i] = map[string]any{
				"translations": []map[string]string{{"text": to + ":" + item.Text, "to": to}},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newAzure(t *testing.T, endpoint string) Translator {
	t.Helper()
	tr, err := NewTranslator(Provider{
		ID:       ProviderAzure,
		Endpoint: endpoint + "/",
		APIKey:   "secret-key",
		Region:   "westeurope",
		Timeout:  5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return tr
}

func TestAzureTranslateRequest(t *testing.T) {
	var calls int32
	srv := azureEcho(t, &calls, func(r *http.Request, body []azureRequestItem) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "3.0", r.URL.Query().Get("api-version"))
		assert.Equal(t, "en", r.URL.Query().Get("from"))
		assert.Equal(t, "de", r.URL.Query().Get("to"))
		assert.Equal(t, "secret-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "westeurope", r.Header.Get("Ocp-Apim-Subscription-Region"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, []azureRequestItem{{Text: "Hello"}, {Text: "World"}, {Text: "a\nb"}}, body)
	})
	defer srv.Close()

	out, err := newAzure(t, srv.URL).Translate(context.Background(), []string{"Hello", "World", "a\nb"}, "en", "de")
	require.NoError(t, err)
	assert.Equal(t, []string{"de:Hello", "de:World", "de:a\nb"}, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAzureTranslateEmptyMakesNoRequest(t *testing.T) {
	var calls int32
	srv := azureEcho(t, &calls, nil)
	defer srv.Close()

	out, err := newAzure(t, srv.URL).Translate(context.Background(), nil, "en", "de")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestAzureTranslateAPIError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401000,"message":"invalid key"}}`)
	}))
	defer srv.Close()

	_, err := newAzure(t, srv.URL).Translate(context.Background(), []string{"Hello"}, "en", "de")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, `{"error":{"code":401000,"message":"invalid key"}}`, apiErr.Body)
	assert.Equal(t, "westeurope", apiErr.Region)
	assert.Contains(t, err.Error(), "401")
	// No retry.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAzureTranslateLengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"translations":[{"text":"Hallo","to":"de"}]}]`)
	}))
	defer srv.Close()

	_, err := newAzure(t, srv.URL).Translate(context.Background(), []string{"Hello", "World"}, "en", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 translations, got 1")
}

func TestAzureTranslateBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	_, err := newAzure(t, srv.URL).Translate(context.Background(), []string{"Hello"}, "en", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestAzureTranslateCanceled(t *testing.T) {
	var calls int32
	srv := azureEcho(t, &calls, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAzure(t, srv.URL).Translate(ctx, []string{"Hello"}, "en", "de")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewTranslatorMissingKey(t *testing.T) {
	_, err := NewTranslator(Provider{ID: ProviderAzure, APIKey: "  "}, nil)

	var missing *settings.MissingCredentialError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, settings.APIKeyEnv, missing.EnvVar)
}

func TestNewTranslatorDefaults(t *testing.T) {
	tr, err := NewTranslator(Provider{APIKey: "k"}, nil)
	require.NoError(t, err)

	az, ok := tr.(*AzureTranslator)
	require.True(t, ok)
	assert.Equal(t, DefaultAzureEndpoint, az.Endpoint)
	assert.Equal(t, DefaultTimeout, az.client.Timeout)

	tr, err = NewTranslator(Provider{ID: "Google"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &GoogleTranslator{}, tr)

	_, err = NewTranslator(Provider{ID: "babelfish"}, nil)
	assert.Error(t, err)
}

func TestGoogleTranslateOnePerString(t *testing.T) {
	var seen []string
	g := &GoogleTranslator{translate: func(text, from, to string) (string, error) {
		seen = append(seen, from+">"+to+":"+text)
		return strings.ToUpper(text), nil
	}}

	assert.Equal(t, 1, g.BatchSize())

	out, err := g.Translate(context.Background(), []string{"one", "two"}, "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"ONE", "TWO"}, out)
	assert.Equal(t, []string{"en>fr:one", "en>fr:two"}, seen)
}

func TestGoogleTranslateStopsOnError(t *testing.T) {
	calls := 0
	g := &GoogleTranslator{translate: func(text, from, to string) (string, error) {
		calls++
		return "", errors.New("blocked")
	}}

	_, err := g.Translate(context.Background(), []string{"one", "two"}, "en", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/2")
	assert.Equal(t, 1, calls)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

func TestAPIErrorKeepsBodyVerbatim(t *testing.T) {
	body := strings.Repeat("a", 700) + "|last"
	err := &APIError{StatusCode: 400, Body: body, Region: "eastus2"}

	assert.True(t, strings.HasSuffix(err.Error(), ": "+body))
	assert.Contains(t, err.Error(), "status 400")
}
