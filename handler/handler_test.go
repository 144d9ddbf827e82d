package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/provider"
	"github.com/mstgnz/unipay/provider/gateways"
)

// envelope mirrors response.Response with Data left raw
type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Hints   []string        `json:"hints"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func serve(t *testing.T, r chi.Router, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newContainer() *provider.Container {
	return provider.NewContainer(gateways.NewFactory())
}

func newProfileStorage(t *testing.T) *config.ProfileStorage {
	t.Helper()
	storage, err := config.NewProfileStorage(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func ecomConfig() config.ServicesConfig {
	return config.ServicesConfig{
		GatewayProvider: config.ProviderEcom,
		MerchantID:      "heartlandgpsandbox",
		AccountID:       "api",
		SharedSecret:    "secret-value-1234",
	}
}

func porticoConfig() config.ServicesConfig {
	return config.ServicesConfig{
		GatewayProvider: config.ProviderPortico,
		SecretAPIKey:    "skapi_cert_MTyMAQBiHVEA",
	}
}
