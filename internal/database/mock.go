package database

import (
	"github.com/stretchr/testify/mock"
)

type MockThreadlyRepository struct {
	mock.Mock
}

func (m *MockThreadlyRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockThreadlyRepository) CreateUser(params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockThreadlyRepository) GetUserById(id string) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockThreadlyRepository) GetUserByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockThreadlyRepository) ListUsers() ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockThreadlyRepository) SearchUsers(prefix string) ([]User, error) {
	args := m.Called(prefix)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockThreadlyRepository) CreateConnectionRequest(params CreateConnectionRequestParams) (ConnectionRequest, error) {
	args := m.Called(params)
	return args.Get(0).(ConnectionRequest), args.Error(1)
}
func (m *MockThreadlyRepository) ConnectionRequestExists(primaryId, secondaryId string) bool {
	args := m.Called(primaryId, secondaryId)
	return args.Bool(0)
}
func (m *MockThreadlyRepository) ListPendingRequests(userId string) ([]ConnectionRequest, error) {
	args := m.Called(userId)
	return args.Get(0).([]ConnectionRequest), args.Error(1)
}
func (m *MockThreadlyRepository) DeleteConnectionRequest(primaryId, secondaryId string) (int64, error) {
	args := m.Called(primaryId, secondaryId)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockThreadlyRepository) CreateConnection(params CreateConnectionParams) (Connection, error) {
	args := m.Called(params)
	return args.Get(0).(Connection), args.Error(1)
}
func (m *MockThreadlyRepository) ListConnections(userId string) ([]Connection, error) {
	args := m.Called(userId)
	return args.Get(0).([]Connection), args.Error(1)
}
