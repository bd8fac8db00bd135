package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

type fakeAccountAPI struct {
	loginRes *models.LoginResponse
	state    string
	err      error

	authorizeReq models.FederatedAuthorizeRequest
}

func (f *fakeAccountAPI) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.loginRes, nil
}

func (f *fakeAccountAPI) FederatedAuthorize(ctx context.Context, req models.FederatedAuthorizeRequest) (string, error) {
	f.authorizeReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.state, nil
}

func (f *fakeAccountAPI) FederatedCallback(ctx context.Context, req models.FederatedCallbackRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.loginRes, nil
}

func TestLoginHandler(t *testing.T) {
	api := &fakeAccountAPI{loginRes: &models.LoginResponse{
		OpenID: "oid-1", LoginCode: "code-1", ExpiresIn: 300,
	}}
	h := NewLoginHandler(api)

	w := perform(h.Login, `{"app_id":"app-1","secret_key":"sk-1","email":"alice@example.com","password":"pw"}`)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "oid-1", data["openid"])
	assert.Equal(t, "code-1", data["login_code"])
}

func TestLoginHandlerFailure(t *testing.T) {
	h := NewLoginHandler(&fakeAccountAPI{err: appErrors.ErrLoginFailed})

	w := perform(h.Login, `{"app_id":"app-1","secret_key":"sk-1","email":"alice@example.com","password":"bad"}`)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "邮箱或密码错误", env.Message)
}

func TestFederatedAuthorizeHandler(t *testing.T) {
	api := &fakeAccountAPI{state: "signed-state"}
	h := NewLoginHandler(api)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/federated/authorize?app_id=app-1&secret_key=sk-1&provider=google&scope=basic", nil)
	h.FederatedAuthorize(c)

	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "signed-state", data["state"])
	assert.Equal(t, "google", api.authorizeReq.Provider)
	assert.Equal(t, "basic", api.authorizeReq.Scope)
}

func TestFederatedCallbackHandler(t *testing.T) {
	api := &fakeAccountAPI{loginRes: &models.LoginResponse{OpenID: "oid-2", LoginCode: "code-2", ExpiresIn: 300}}
	h := NewLoginHandler(api)

	w := perform(h.FederatedCallback, `{"state":"signed-state","subject":"goog-1"}`)

	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "oid-2", data["openid"])
}
