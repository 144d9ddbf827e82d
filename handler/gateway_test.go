package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/provider"
	"github.com/mstgnz/unipay/provider/portico"
)

func gatewayRouter(h *GatewayHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/configure", h.Configure)
	r.Get("/v1/gateway", h.Describe)
	r.Get("/v1/secure3d/{version}", h.Secure3D)
	r.Get("/v1/providers", h.Providers)
	return r
}

func TestConfigure_InstallsTuple(t *testing.T) {
	container := newContainer()
	r := gatewayRouter(NewGatewayHandler(container, nil))

	w := serve(t, r, http.MethodPost, "/v1/configure", ecomConfig())
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	assert.True(t, env.Success)

	var view GatewayView
	decodeData(t, env, &view)
	assert.Equal(t, config.ProviderEcom, view.Provider)
	assert.Equal(t, config.EnvironmentTest, view.Environment)
	assert.Equal(t, config.GlobalEcomTest, view.GatewayURL)
	assert.Equal(t, config.GlobalEcomTest, view.RecurringURL)
	assert.Equal(t, []config.Secure3dVersion{config.Secure3dOne}, view.Secure3DVersions)
	assert.Contains(t, view.Supports, provider.TransactionSale)
	assert.NotContains(t, view.Supports, provider.TransactionBalance)

	assert.True(t, container.Current().Configured())
	assert.Equal(t, container.Current().ID, view.ID)
}

func TestConfigure_RejectedKeepsPrevious(t *testing.T) {
	container := newContainer()
	r := gatewayRouter(NewGatewayHandler(container, nil))

	require.Equal(t, http.StatusOK, serve(t, r, http.MethodPost, "/v1/configure", porticoConfig()).Code)
	before := container.Current()

	bad := ecomConfig()
	bad.SharedSecret = ""
	w := serve(t, r, http.MethodPost, "/v1/configure", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "sharedSecret")
	assert.NotEmpty(t, env.Hints)

	assert.Same(t, before, container.Current())
	assert.Equal(t, config.ProviderPortico, container.Current().Provider)
}

func TestConfigure_InvalidJSON(t *testing.T) {
	r := gatewayRouter(NewGatewayHandler(newContainer(), nil))

	w := serve(t, r, http.MethodPost, "/v1/configure", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigure_Timeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout any
		status  int
		want    time.Duration
	}{
		{name: "milliseconds", timeout: 30000, status: http.StatusOK, want: 30 * time.Second},
		{name: "duration_string", timeout: "45s", status: http.StatusOK, want: 45 * time.Second},
		{name: "not_a_duration", timeout: "soon", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := newContainer()
			storage := newProfileStorage(t)
			r := gatewayRouter(NewGatewayHandler(container, storage))

			body := map[string]any{
				"gatewayProvider": config.ProviderPortico,
				"secretApiKey":    "skapi_cert_MTyMAQBiHVEA",
				"timeout":         tt.timeout,
			}
			w := serve(t, r, http.MethodPost, "/v1/configure?profile=main", body)
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				assert.False(t, container.Current().Configured())
				return
			}

			conn, ok := container.Current().Gateway.(*portico.Connector)
			require.True(t, ok)
			assert.Equal(t, tt.want, conn.Config().Timeout)

			saved, err := storage.LoadProfile("main")
			require.NoError(t, err)
			assert.Equal(t, tt.want, saved.Config.Timeout.Duration())
		})
	}
}

func TestConfigure_ProfileWithoutStorage(t *testing.T) {
	container := newContainer()
	r := gatewayRouter(NewGatewayHandler(container, nil))

	w := serve(t, r, http.MethodPost, "/v1/configure?profile=main", ecomConfig())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, container.Current().Configured())
}

func TestConfigure_SavesProfile(t *testing.T) {
	storage := newProfileStorage(t)
	container := newContainer()
	r := gatewayRouter(NewGatewayHandler(container, storage))

	w := serve(t, r, http.MethodPost, "/v1/configure?profile=main", ecomConfig())
	require.Equal(t, http.StatusOK, w.Code)

	profile, err := storage.LoadProfile("main")
	require.NoError(t, err)
	assert.Equal(t, "secret-value-1234", profile.Config.SharedSecret)
	require.NotNil(t, profile.LastAppliedAt)

	last, err := storage.LastApplied()
	require.NoError(t, err)
	assert.Equal(t, "main", last.Name)
}

func TestConfigure_RejectedDoesNotSaveProfile(t *testing.T) {
	storage := newProfileStorage(t)
	r := gatewayRouter(NewGatewayHandler(newContainer(), storage))

	bad := ecomConfig()
	bad.MerchantID = ""
	w := serve(t, r, http.MethodPost, "/v1/configure?profile=main", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)

	_, err := storage.LoadProfile("main")
	assert.ErrorIs(t, err, config.ErrProfileNotFound)
}

func TestDescribe(t *testing.T) {
	container := newContainer()
	r := gatewayRouter(NewGatewayHandler(container, nil))

	w := serve(t, r, http.MethodGet, "/v1/gateway", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	cfg := porticoConfig()
	require.NoError(t, container.Configure(&cfg))

	w = serve(t, r, http.MethodGet, "/v1/gateway", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view GatewayView
	decodeData(t, decode(t, w), &view)
	assert.Equal(t, config.ProviderPortico, view.Provider)
	assert.Equal(t, config.PorticoTest+config.PorticoGatewayPath, view.GatewayURL)
	assert.Equal(t, config.PorticoTest+config.PayPlanCertPath, view.RecurringURL)
	assert.Empty(t, view.Secure3DVersions)
}

func TestSecure3D(t *testing.T) {
	container := newContainer()
	r := gatewayRouter(NewGatewayHandler(container, nil))

	w := serve(t, r, http.MethodGet, "/v1/secure3d/two", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w).Error, "version two")

	cfg := ecomConfig()
	require.NoError(t, container.Configure(&cfg))

	tests := []struct {
		path    string
		status  int
		version config.Secure3dVersion
	}{
		{path: "/v1/secure3d/one", status: http.StatusOK, version: config.Secure3dOne},
		{path: "/v1/secure3d/any", status: http.StatusOK, version: config.Secure3dOne},
		{path: "/v1/secure3d/two", status: http.StatusNotFound},
		{path: "/v1/secure3d/none", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(t, r, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.status, w.Code)

			env := decode(t, w)
			if tt.status != http.StatusOK {
				assert.Contains(t, env.Error, "configuration_error")
				return
			}

			var data map[string]string
			decodeData(t, env, &data)
			assert.Equal(t, string(tt.version), data["version"])
			assert.Equal(t, config.GlobalEcomTest, data["serviceUrl"])
		})
	}
}

func TestProviders(t *testing.T) {
	r := gatewayRouter(NewGatewayHandler(newContainer(), nil))

	w := serve(t, r, http.MethodGet, "/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var infos []ProviderInfo
	decodeData(t, decode(t, w), &infos)
	require.Len(t, infos, len(config.KnownProviders))

	for i, info := range infos {
		assert.Equal(t, config.KnownProviders[i], info.Provider)
		assert.NotEmpty(t, info.Fields)
		assert.Equal(t, info.Provider == config.ProviderPortico, info.Fallback)
	}
}
