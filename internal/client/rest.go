package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/threadly-chat/threadly/internal/types"
)

// API is a thin request/response client for the Threadly backend. It holds
// no cache and performs no retries; callers refetch on demand.
type API struct {
	baseURL string
	http    *http.Client
	log     *log.Logger
}

func NewAPI(baseURL string, logger *log.Logger) *API {
	jar, _ := cookiejar.New(nil)
	return &API{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
		log: logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) do(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequest(method, a.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, errResp.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (a *API) Register(username, password string) (types.User, error) {
	var user types.User
	err := a.do(http.MethodPost, "/register", map[string]string{
		"username": username,
		"password": password,
	}, &user)

	return user, err
}

func (a *API) Login(username, password string) error {
	return a.do(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

func (a *API) Logout() error {
	return a.do(http.MethodGet, "/logout", nil, nil)
}

func (a *API) Users() ([]types.User, error) {
	var users []types.User
	err := a.do(http.MethodGet, "/users", nil, &users)
	return users, err
}

// Search returns prefix matches on username. An empty result is not an
// error; the backend signals it with a message body, which decodes to an
// empty list here.
func (a *API) Search(searchText string) ([]types.User, error) {
	var raw json.RawMessage
	if err := a.do(http.MethodPost, "/search", map[string]string{"search_text": searchText}, &raw); err != nil {
		return nil, err
	}

	var users []types.User
	if err := json.Unmarshal(raw, &users); err != nil {
		// a {"message": ...} body means no matches
		return nil, nil
	}

	return users, nil
}

func (a *API) SendConnectionRequest(primaryId, secondaryId, primaryName, secondaryName string) error {
	return a.do(http.MethodPost, "/connection-request", map[string]string{
		"primary_id":     primaryId,
		"secondary_id":   secondaryId,
		"primary_name":   primaryName,
		"secondary_name": secondaryName,
	}, nil)
}

func (a *API) PendingRequests(userId string) ([]types.ConnectionRequest, error) {
	var requests []types.ConnectionRequest
	err := a.do(http.MethodPost, "/pending-connection-requests", map[string]string{"user_id": userId}, &requests)
	return requests, err
}

type actionResponse struct {
	// the backend's irregular casing, preserved as-is
	ConnectionId string `json:"connection_Id"`
	Message      string `json:"message"`
}

// Accept accepts a pending request and returns the minted connection id,
// which is the chat room id.
func (a *API) Accept(req types.ConnectionRequest) (string, error) {
	var resp actionResponse
	err := a.do(http.MethodPost, "/action-request", map[string]string{
		"primary_id":     req.PrimaryId,
		"secondary_id":   req.SecondaryId,
		"primary_name":   req.PrimaryName,
		"secondary_name": req.SecondaryName,
		"action":         "ACCEPT",
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.ConnectionId, nil
}

func (a *API) Reject(req types.ConnectionRequest) error {
	return a.do(http.MethodPost, "/action-request", map[string]string{
		"primary_id":     req.PrimaryId,
		"secondary_id":   req.SecondaryId,
		"primary_name":   req.PrimaryName,
		"secondary_name": req.SecondaryName,
		"action":         "REJECT",
	}, nil)
}

func (a *API) ActiveConnections(userId string) ([]types.Connection, error) {
	var conns []types.Connection
	err := a.do(http.MethodPost, "/active-connections", map[string]string{"user_id": userId}, &conns)
	return conns, err
}
