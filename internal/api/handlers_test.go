package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threadly-chat/threadly/internal/config"
	"github.com/threadly-chat/threadly/internal/database"
	"github.com/threadly-chat/threadly/internal/testutil"
	"github.com/threadly-chat/threadly/internal/types"
)

func newTestApp(t *testing.T, repo database.ThreadlyRepository) *ThreadlyApp {
	return NewThreadlyApp(http.NewServeMux(), testutil.TestLogger(t), nil, repo, &config.Config{
		SigningKey: []byte("test-signing-key"),
	})
}

// findCookie returns the named cookie from the recorded response, or nil.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(v))
	return buf
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
		code    int
	}{
		{
			name:    "successful health check",
			mockErr: nil,
			code:    http.StatusOK,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
			code:    http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockThreadlyRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			app.healthCheck(rr, req)

			assert.Equal(t, tc.code, rr.Code, "expected status code to match")
		})
	}
}

func Test_register(t *testing.T) {
	tcases := []struct {
		name     string
		body     any
		mockUser database.User
		mockErr  error
		code     int
		errMsg   string
	}{
		{
			name:     "successful registration",
			body:     RegisterRequest{Username: "newuser", Password: "password"},
			mockUser: database.User{Id: "u-1", Username: "newuser"},
			code:     http.StatusCreated,
		},
		{
			name:    "username taken",
			body:    RegisterRequest{Username: "taken", Password: "password"},
			mockErr: &pq.Error{Code: uniqueViolation},
			code:    http.StatusConflict,
			errMsg:  "Username already taken",
		},
		{
			name:    "database error",
			body:    RegisterRequest{Username: "newuser", Password: "password"},
			mockErr: errors.New("db error"),
			code:    http.StatusInternalServerError,
		},
		{
			name: "missing username",
			body: RegisterRequest{Password: "password"},
			code: http.StatusBadRequest,
		},
		{
			name: "missing password",
			body: RegisterRequest{Username: "newuser"},
			code: http.StatusBadRequest,
		},
		{
			name: "malformed body",
			body: "not json",
			code: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockThreadlyRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.code != http.StatusBadRequest {
				mockRepo.On("CreateUser", mock.Anything).Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/register", jsonBody(t, tc.body))
			app.register(rr, req)

			assert.Equal(t, tc.code, rr.Code, "expected status code to match")

			if tc.code == http.StatusCreated {
				var user types.User
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
				assert.Equal(t, tc.mockUser.Id, user.Id, "expected the new user id in the response")
				assert.Equal(t, tc.mockUser.Username, user.Username, "expected the username in the response")
			}
			if tc.errMsg != "" {
				var errResp map[string]string
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
				assert.Equal(t, tc.errMsg, errResp["error"], "expected the error message to match")
			}
		})
	}
}

func Test_login(t *testing.T) {
	passwordHash, err := hashPassword("password")
	require.NoError(t, err)

	tcases := []struct {
		name     string
		body     any
		mockUser database.User
		mockErr  error
		code     int
		cookie   bool
	}{
		{
			name:     "successful login",
			body:     LoginRequest{Username: "user", Password: "password"},
			mockUser: database.User{Id: "u-1", Username: "user", PasswordHash: passwordHash},
			code:     http.StatusOK,
			cookie:   true,
		},
		{
			name:    "unknown user",
			body:    LoginRequest{Username: "ghost", Password: "password"},
			mockErr: sql.ErrNoRows,
			code:    http.StatusNotFound,
		},
		{
			name:     "wrong password",
			body:     LoginRequest{Username: "user", Password: "wrong"},
			mockUser: database.User{Id: "u-1", Username: "user", PasswordHash: passwordHash},
			code:     http.StatusUnauthorized,
		},
		{
			name:    "database error",
			body:    LoginRequest{Username: "user", Password: "password"},
			mockErr: errors.New("db error"),
			code:    http.StatusInternalServerError,
		},
		{
			name: "missing credentials",
			body: LoginRequest{},
			code: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockThreadlyRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.code != http.StatusBadRequest {
				mockRepo.On("GetUserByUsername", mock.Anything).Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/login", jsonBody(t, tc.body))
			app.login(rr, req)

			assert.Equal(t, tc.code, rr.Code, "expected status code to match")

			cookie := findCookie(rr, tokenCookieKey)
			if tc.cookie {
				require.NotNil(t, cookie, "expected a session cookie to be set")
				assert.NotEmpty(t, cookie.Value, "expected the cookie to carry a token")
				assert.True(t, cookie.HttpOnly, "expected the cookie to be http-only")

				var resp MessageResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "Login successful", resp.Message, "expected the login message")
			} else {
				assert.Nil(t, cookie, "expected no session cookie on failure")
			}
		})
	}
}

func Test_logout(t *testing.T) {
	app := newTestApp(t, &database.MockThreadlyRepository{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	app.logout(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code, "expected no content")
	cookie := findCookie(rr, tokenCookieKey)
	require.NotNil(t, cookie, "expected the cookie to be overwritten")
	assert.Empty(t, cookie.Value, "expected the cookie value to be cleared")
}

func Test_session(t *testing.T) {
	t.Run("returns the authenticated user", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetUserById", "u-1").Return(database.User{Id: "u-1", Username: "user"}, nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req = req.WithContext(WithUserId(req.Context(), "u-1"))
		app.session(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var user types.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "u-1", user.Id)
		assert.Equal(t, "user", user.Username)
	})

	t.Run("missing user id in context", func(t *testing.T) {
		app := newTestApp(t, &database.MockThreadlyRepository{})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		app.session(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func Test_searchUsers(t *testing.T) {
	t.Run("returns matches", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SearchUsers", "al").Return([]database.User{
			{Id: "u-1", Username: "alice"},
			{Id: "u-2", Username: "albert"},
		}, nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/search", jsonBody(t, SearchRequest{SearchText: "al"}))
		app.searchUsers(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var users []types.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&users))
		assert.Len(t, users, 2, "expected both matches")
	})

	t.Run("no matches returns a message body", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SearchUsers", "zz").Return([]database.User{}, nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/search", jsonBody(t, SearchRequest{SearchText: "zz"}))
		app.searchUsers(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp MessageResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "No users found with searched name", resp.Message, "expected the no-match message")
	})
}

func Test_createConnectionRequest(t *testing.T) {
	body := ConnectionRequestBody{
		PrimaryId:     "u-1",
		SecondaryId:   "u-2",
		PrimaryName:   "alice",
		SecondaryName: "bob",
	}

	t.Run("successful request", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ConnectionRequestExists", "u-1", "u-2").Return(false).Once()
		mockRepo.On("CreateConnectionRequest", mock.MatchedBy(func(p database.CreateConnectionRequestParams) bool {
			return p.Id != "" && p.PrimaryId == "u-1" && p.SecondaryId == "u-2"
		})).Return(database.ConnectionRequest{}, nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connection-request", jsonBody(t, body))
		app.createConnectionRequest(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp MessageResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Request sent successfully", resp.Message)
	})

	t.Run("duplicate request", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ConnectionRequestExists", "u-1", "u-2").Return(true).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connection-request", jsonBody(t, body))
		app.createConnectionRequest(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)

		var errResp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
		assert.Equal(t, "Request already sent", errResp["error"])
	})

	t.Run("missing ids", func(t *testing.T) {
		app := newTestApp(t, &database.MockThreadlyRepository{})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connection-request", jsonBody(t, ConnectionRequestBody{}))
		app.createConnectionRequest(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_pendingConnectionRequests(t *testing.T) {
	mockRepo := &database.MockThreadlyRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("ListPendingRequests", "u-2").Return([]database.ConnectionRequest{
		{Id: "req-1", PrimaryId: "u-1", SecondaryId: "u-2", PrimaryName: "alice", SecondaryName: "bob"},
	}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pending-connection-requests", jsonBody(t, UserIdRequest{UserId: "u-2"}))
	app.pendingConnectionRequests(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var requests []types.ConnectionRequest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "req-1", requests[0].Id)
	assert.Equal(t, "alice", requests[0].PrimaryName)
}

func Test_actionRequest(t *testing.T) {
	body := func(action string) ActionRequestBody {
		return ActionRequestBody{
			PrimaryId:     "u-1",
			SecondaryId:   "u-2",
			PrimaryName:   "alice",
			SecondaryName: "bob",
			Action:        action,
		}
	}

	t.Run("accept mints a connection", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteConnectionRequest", "u-1", "u-2").Return(int64(1), nil).Once()
		mockRepo.On("CreateConnection", database.CreateConnectionParams{
			CommonId:      "u-1_u-2",
			PrimaryId:     "u-1",
			SecondaryId:   "u-2",
			PrimaryName:   "alice",
			SecondaryName: "bob",
		}).Return(database.Connection{}, nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/action-request", jsonBody(t, body(ActionAccept)))
		app.actionRequest(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		// the irregular key casing is part of the public contract
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "u-1_u-2", resp["connection_Id"], "expected the minted connection id")
		assert.Equal(t, "Accepted successfully", resp["message"])
	})

	t.Run("reject deletes the request", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteConnectionRequest", "u-1", "u-2").Return(int64(1), nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/action-request", jsonBody(t, body(ActionReject)))
		app.actionRequest(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp MessageResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Rejected successfully", resp.Message)
	})

	t.Run("no matching request", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteConnectionRequest", "u-1", "u-2").Return(int64(0), nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/action-request", jsonBody(t, body(ActionAccept)))
		app.actionRequest(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var errResp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
		assert.Equal(t, "Unable to find the required details to perform your action", errResp["error"])
	})

	t.Run("invalid action", func(t *testing.T) {
		app := newTestApp(t, &database.MockThreadlyRepository{})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/action-request", jsonBody(t, body("MAYBE")))
		app.actionRequest(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_activeConnections(t *testing.T) {
	t.Run("returns connections", func(t *testing.T) {
		mockRepo := &database.MockThreadlyRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListConnections", "u-1").Return([]database.Connection{
			{CommonId: "u-1_u-2", PrimaryId: "u-1", SecondaryId: "u-2", PrimaryName: "alice", SecondaryName: "bob"},
		}, nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/active-connections", jsonBody(t, UserIdRequest{UserId: "u-1"}))
		app.activeConnections(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var conns []types.Connection
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&conns))
		require.Len(t, conns, 1)
		assert.Equal(t, "u-1_u-2", conns[0].CommonId)
	})

	t.Run("missing user id", func(t *testing.T) {
		app := newTestApp(t, &database.MockThreadlyRepository{})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/active-connections", jsonBody(t, UserIdRequest{}))
		app.activeConnections(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
