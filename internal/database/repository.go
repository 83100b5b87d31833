package database

type ThreadlyRepository interface {
	Ping() error
	CreateUser(params CreateUserParams) (User, error)
	GetUserById(id string) (User, error)
	GetUserByUsername(username string) (User, error)
	ListUsers() ([]User, error)
	SearchUsers(prefix string) ([]User, error)
	CreateConnectionRequest(params CreateConnectionRequestParams) (ConnectionRequest, error)
	ConnectionRequestExists(primaryId, secondaryId string) bool
	ListPendingRequests(userId string) ([]ConnectionRequest, error)
	DeleteConnectionRequest(primaryId, secondaryId string) (int64, error)
	CreateConnection(params CreateConnectionParams) (Connection, error)
	ListConnections(userId string) ([]Connection, error)
}
