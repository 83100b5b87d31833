package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lib/pq"
	"github.com/teris-io/shortid"
	"github.com/threadly-chat/threadly/internal/database"
	"github.com/threadly-chat/threadly/internal/server"
	"github.com/threadly-chat/threadly/internal/types"
)

const (
	ActionAccept = "ACCEPT"
	ActionReject = "REJECT"

	uniqueViolation = "23505"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SearchRequest struct {
	SearchText string `json:"search_text"`
}

type ConnectionRequestBody struct {
	PrimaryId     string `json:"primary_id"`
	SecondaryId   string `json:"secondary_id"`
	PrimaryName   string `json:"primary_name"`
	SecondaryName string `json:"secondary_name"`
}

type UserIdRequest struct {
	UserId string `json:"user_id"`
}

type ActionRequestBody struct {
	PrimaryId     string `json:"primary_id"`
	SecondaryId   string `json:"secondary_id"`
	PrimaryName   string `json:"primary_name"`
	SecondaryName string `json:"secondary_name"`
	Action        string `json:"action"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// AcceptResponse carries the minted connection id. The irregular
// "connection_Id" key is part of the public contract; the frontend reads it
// verbatim and uses the value as the chat room id.
type AcceptResponse struct {
	ConnectionId string `json:"connection_Id"`
	Message      string `json:"message"`
}

func (s *ThreadlyApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ThreadlyApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, MessageResponse{Message: "ok"})
}

func (s *ThreadlyApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Password == "" {
		errResp := NewBadRequestError("username and password are required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateUserParams{
		Id:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateUser(params)
	if err != nil {
		var pqErr *pq.Error
		var errResp *ApiError
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			errResp = NewConflictError("Username already taken")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:       newUser.Id,
		Username: newUser.Username,
	})
}

func (s *ThreadlyApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Username == "" || lr.Password == "" {
		errResp := NewBadRequestError("username and password are required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByUsername(lr.Username)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, MessageResponse{Message: "Login successful"})
}

func (s *ThreadlyApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ThreadlyApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetUserById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:       user.Id,
		Username: user.Username,
	})
}

func (s *ThreadlyApp) listUsers(w http.ResponseWriter, _ *http.Request) {
	dbUsers, err := s.db.ListUsers()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, types.User{Id: u.Id, Username: u.Username})
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ThreadlyApp) searchUsers(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUsers, err := s.db.SearchUsers(req.SearchText)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if len(dbUsers) == 0 {
		s.writeJson(w, http.StatusOK, MessageResponse{Message: "No users found with searched name"})
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, types.User{Id: u.Id, Username: u.Username})
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ThreadlyApp) createConnectionRequest(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.PrimaryId == "" {
		errResp := NewBadRequestError("primary_id is missing")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if req.SecondaryId == "" {
		errResp := NewBadRequestError("secondary_id is missing")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.db.ConnectionRequestExists(req.PrimaryId, req.SecondaryId) {
		errResp := NewConflictError("Request already sent")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := shortid.Generate()
	if err != nil {
		s.log.Println("shortid:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.CreateConnectionRequest(database.CreateConnectionRequestParams{
		Id:            sid,
		PrimaryId:     req.PrimaryId,
		SecondaryId:   req.SecondaryId,
		PrimaryName:   req.PrimaryName,
		SecondaryName: req.SecondaryName,
	}); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, MessageResponse{Message: "Request sent successfully"})
}

func (s *ThreadlyApp) pendingConnectionRequests(w http.ResponseWriter, r *http.Request) {
	var req UserIdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.UserId == "" {
		errResp := NewBadRequestError("user_id is missing")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRequests, err := s.db.ListPendingRequests(req.UserId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requests := make([]types.ConnectionRequest, 0, len(dbRequests))
	for _, cr := range dbRequests {
		requests = append(requests, types.ConnectionRequest{
			Id:            cr.Id,
			PrimaryId:     cr.PrimaryId,
			SecondaryId:   cr.SecondaryId,
			PrimaryName:   cr.PrimaryName,
			SecondaryName: cr.SecondaryName,
			CreatedAt:     cr.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, requests)
}

func (s *ThreadlyApp) actionRequest(w http.ResponseWriter, r *http.Request) {
	var req ActionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.PrimaryId == "" {
		errResp := NewBadRequestError("primary_id is missing")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if req.SecondaryId == "" {
		errResp := NewBadRequestError("secondary_id is missing")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if req.Action != ActionAccept && req.Action != ActionReject {
		errResp := NewBadRequestError("action must be ACCEPT or REJECT")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	deleted, err := s.db.DeleteConnectionRequest(req.PrimaryId, req.SecondaryId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if deleted == 0 {
		errResp := NewBadRequestError("Unable to find the required details to perform your action")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Action == ActionReject {
		s.writeJson(w, http.StatusCreated, MessageResponse{Message: "Rejected successfully"})
		return
	}

	// the minted room id; both members can derive it but it is handed back
	// as an opaque value
	commonId := req.PrimaryId + "_" + req.SecondaryId

	if _, err := s.db.CreateConnection(database.CreateConnectionParams{
		CommonId:      commonId,
		PrimaryId:     req.PrimaryId,
		SecondaryId:   req.SecondaryId,
		PrimaryName:   req.PrimaryName,
		SecondaryName: req.SecondaryName,
	}); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, AcceptResponse{
		ConnectionId: commonId,
		Message:      "Accepted successfully",
	})
}

func (s *ThreadlyApp) activeConnections(w http.ResponseWriter, r *http.Request) {
	var req UserIdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.UserId == "" {
		errResp := NewBadRequestError("user_id is missing")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbConns, err := s.db.ListConnections(req.UserId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conns := make([]types.Connection, 0, len(dbConns))
	for _, c := range dbConns {
		conns = append(conns, types.Connection{
			CommonId:      c.CommonId,
			PrimaryId:     c.PrimaryId,
			SecondaryId:   c.SecondaryId,
			PrimaryName:   c.PrimaryName,
			SecondaryName: c.SecondaryName,
			CreatedAt:     c.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, conns)
}

func (s *ThreadlyApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
