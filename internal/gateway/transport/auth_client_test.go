package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

type mockDispatcher struct {
	dispatchFunc func(ctx context.Context, req domain.Request) (domain.Response, error)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, req domain.Request) (domain.Response, error) {
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, req)
	}
	return domain.Response{StatusCode: http.StatusNoContent}, nil
}

func TestParseTokenResponse(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    domain.CredentialPair
		wantErr bool
	}{
		{"snake case", `{"access_token":"a","refresh_token":"r"}`, domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}, false},
		{"camel case", `{"accessToken":"a","refreshToken":"r"}`, domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}, false},
		{"token alias under data", `{"data":{"token":"a","refreshToken":"r"}}`, domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}, false},
		{"missing refresh", `{"access_token":"a"}`, domain.CredentialPair{}, true},
		{"missing access", `{"refresh_token":"r"}`, domain.CredentialPair{}, true},
		{"numeric token", `{"access_token":1,"refresh_token":"r"}`, domain.CredentialPair{}, true},
		{"not json", `<html>`, domain.CredentialPair{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pair, err := ParseTokenResponse([]byte(tc.body))
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidTokenResponse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, pair)
		})
	}
}

func TestAuthClient_Refresh_PostsRefreshToken(t *testing.T) {
	var got domain.Request
	d := &mockDispatcher{dispatchFunc: func(ctx context.Context, req domain.Request) (domain.Response, error) {
		got = req
		return domain.Response{StatusCode: http.StatusOK, Body: []byte(`{"access_token":"a2","refresh_token":"r2"}`)}, nil
	}}

	pair, err := NewAuthClient(d, "/login", "/refresh", "/logout").Refresh(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.CredentialPair{AccessToken: "a2", RefreshToken: "r2"}, pair)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/refresh", got.Path)
	assert.Empty(t, got.Header.Get("Authorization"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(got.Body, &body))
	assert.Equal(t, "r1", body["refresh_token"])
}

func TestAuthClient_Refresh_PropagatesStatusError(t *testing.T) {
	d := &mockDispatcher{dispatchFunc: func(ctx context.Context, req domain.Request) (domain.Response, error) {
		return domain.Response{}, &domain.StatusError{StatusCode: http.StatusUnauthorized}
	}}

	_, err := NewAuthClient(d, "/login", "/refresh", "/logout").Refresh(context.Background(), "r1")

	var statusErr *domain.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestAuthClient_Logout_SendsBearer(t *testing.T) {
	var got domain.Request
	d := &mockDispatcher{dispatchFunc: func(ctx context.Context, req domain.Request) (domain.Response, error) {
		got = req
		return domain.Response{StatusCode: http.StatusNoContent}, nil
	}}

	err := NewAuthClient(d, "/login", "/refresh", "/logout").Logout(context.Background(), domain.CredentialPair{AccessToken: "a", RefreshToken: "r"})

	require.NoError(t, err)
	assert.Equal(t, "/logout", got.Path)
	assert.Equal(t, "Bearer a", got.Header.Get("Authorization"))
}

func TestAuthClient_Login_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "cashier" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"INVALID_CREDENTIALS","message":"invalid username or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a","refresh_token":"r"}`))
	}))
	defer srv.Close()

	client := NewAuthClient(NewHTTPTransport(srv.URL, time.Second), "/api/auth/login", "/api/auth/refresh", "")

	pair, err := client.Login(context.Background(), "cashier", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", pair.AccessToken)

	_, err = client.Login(context.Background(), "cashier", "wrong")
	var statusErr *domain.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "INVALID_CREDENTIALS", statusErr.Code)

	assert.NoError(t, client.Logout(context.Background(), pair))
}
