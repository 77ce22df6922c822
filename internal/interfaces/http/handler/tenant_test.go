package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/admin"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/interfaces/http/dto"
)

func tenantRouter() (*gin.Engine, *singleTenantRepo) {
	repo := &singleTenantRepo{}
	r := gin.New()
	NewTenantHandler(admin.NewTenantService(repo, nil)).RegisterRoutes(r)
	return r, repo
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeTenant(t *testing.T, w *httptest.ResponseRecorder) admin.TenantResponse {
	t.Helper()
	var resp struct {
		Success bool                 `json:"success"`
		Data    admin.TenantResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func registerBody() map[string]string {
	return map[string]string{
		"name":           "Acme Outfitters",
		"shop_domain":    "acme.myshopify.com",
		"access_token":   "shpat_secret_token",
		"webhook_secret": "whsec_secret",
	}
}

func TestTenantHandler_Register(t *testing.T) {
	r, _ := tenantRouter()

	w := doJSON(r, http.MethodPost, "/tenants", registerBody())

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeTenant(t, w)
	assert.Equal(t, "acme.myshopify.com", resp.ShopDomain)
	assert.True(t, resp.SyncEnabled)
	assert.True(t, resp.HasCredential)

	// credentials stay server side
	assert.NotContains(t, w.Body.String(), "shpat_secret_token")
	assert.NotContains(t, w.Body.String(), "whsec_secret")
}

func TestTenantHandler_RegisterValidation(t *testing.T) {
	r, _ := tenantRouter()

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing access token", map[string]string{
			"name": "Acme", "shop_domain": "acme.myshopify.com", "webhook_secret": "s",
		}},
		{"missing webhook secret", map[string]string{
			"name": "Acme", "shop_domain": "acme.myshopify.com", "access_token": "t",
		}},
		{"empty body", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/tenants", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTenantHandler_RegisterDuplicate(t *testing.T) {
	r, _ := tenantRouter()

	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/tenants", registerBody()).Code)

	w := doJSON(r, http.MethodPost, "/tenants", registerBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestTenantHandler_Get(t *testing.T) {
	r, repo := tenantRouter()
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/tenants", registerBody()).Code)
	id := repo.tenant.ID

	w := doJSON(r, http.MethodGet, "/tenants/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodeTenant(t, w).ID)

	t.Run("unknown id", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/tenants/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/tenants/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTenantHandler_RotateCredential(t *testing.T) {
	r, repo := tenantRouter()
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/tenants", registerBody()).Code)
	id := repo.tenant.ID
	before := repo.tenant.Version

	w := doJSON(r, http.MethodPut, "/tenants/"+id.String()+"/credentials", map[string]string{
		"access_token": "shpat_rotated",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, repo.tenant.Version, before)
	assert.Equal(t, "shpat_rotated", repo.tenant.AccessToken)
	assert.NotContains(t, w.Body.String(), "shpat_rotated")
}

func TestTenantHandler_RotateWebhookSecret(t *testing.T) {
	r, repo := tenantRouter()
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/tenants", registerBody()).Code)
	id := repo.tenant.ID

	w := doJSON(r, http.MethodPut, "/tenants/"+id.String()+"/webhook-secret", map[string]string{
		"webhook_secret": "whsec_rotated",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "whsec_rotated", repo.tenant.WebhookSecret)
	assert.False(t, strings.Contains(w.Body.String(), "whsec_rotated"))
}

func TestTenantHandler_Deactivate(t *testing.T) {
	r, repo := tenantRouter()
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/tenants", registerBody()).Code)
	id := repo.tenant.ID

	w := doJSON(r, http.MethodDelete, "/tenants/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inactive", decodeTenant(t, w).Status)

	t.Run("already inactive", func(t *testing.T) {
		w := doJSON(r, http.MethodDelete, "/tenants/"+id.String(), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
