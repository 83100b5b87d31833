package database

import (
	"time"
)

func (db *PgThreadlyRepository) CreateUser(params CreateUserParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (id, username, password, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username",
		params.Id,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
	)

	return u, err
}

func (db *PgThreadlyRepository) GetUserById(id string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgThreadlyRepository) GetUserByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password, created_at FROM users "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgThreadlyRepository) ListUsers() ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username FROM users ORDER BY username",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgThreadlyRepository) SearchUsers(prefix string) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username FROM users WHERE username ILIKE $1 || '%'",
		prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgThreadlyRepository) CreateConnectionRequest(params CreateConnectionRequestParams) (ConnectionRequest, error) {
	res := db.conn.QueryRow(
		"INSERT INTO connection_requests (id, primary_id, secondary_id, primary_name, secondary_name, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, primary_id, secondary_id, primary_name, secondary_name, created_at",
		params.Id,
		params.PrimaryId,
		params.SecondaryId,
		params.PrimaryName,
		params.SecondaryName,
		time.Now().UTC(),
	)

	var cr ConnectionRequest
	err := res.Scan(
		&cr.Id,
		&cr.PrimaryId,
		&cr.SecondaryId,
		&cr.PrimaryName,
		&cr.SecondaryName,
		&cr.CreatedAt,
	)

	return cr, err
}

func (db *PgThreadlyRepository) ConnectionRequestExists(primaryId, secondaryId string) bool {
	row := db.conn.QueryRow(
		"SELECT COUNT(1) FROM connection_requests "+
			"WHERE (primary_id = $1 AND secondary_id = $2) OR (primary_id = $2 AND secondary_id = $1)",
		primaryId,
		secondaryId,
	)

	var count int
	if err := row.Scan(&count); err != nil {
		return false
	}

	return count > 0
}

func (db *PgThreadlyRepository) ListPendingRequests(userId string) ([]ConnectionRequest, error) {
	rows, err := db.conn.Query(
		"SELECT id, primary_id, secondary_id, primary_name, secondary_name, created_at "+
			"FROM connection_requests WHERE secondary_id = $1 ORDER BY created_at",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []ConnectionRequest
	for rows.Next() {
		var cr ConnectionRequest
		if err := rows.Scan(
			&cr.Id,
			&cr.PrimaryId,
			&cr.SecondaryId,
			&cr.PrimaryName,
			&cr.SecondaryName,
			&cr.CreatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, cr)
	}

	return requests, rows.Err()
}

// DeleteConnectionRequest removes the request between the pair and reports
// how many rows were deleted; the caller uses zero to reject an action on a
// request that no longer exists.
func (db *PgThreadlyRepository) DeleteConnectionRequest(primaryId, secondaryId string) (int64, error) {
	res, err := db.conn.Exec(
		"DELETE FROM connection_requests WHERE primary_id = $1 AND secondary_id = $2",
		primaryId,
		secondaryId,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (db *PgThreadlyRepository) CreateConnection(params CreateConnectionParams) (Connection, error) {
	res := db.conn.QueryRow(
		"INSERT INTO active_connections (common_id, primary_id, secondary_id, primary_name, secondary_name, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING common_id, primary_id, secondary_id, primary_name, secondary_name, created_at",
		params.CommonId,
		params.PrimaryId,
		params.SecondaryId,
		params.PrimaryName,
		params.SecondaryName,
		time.Now().UTC(),
	)

	var conn Connection
	err := res.Scan(
		&conn.CommonId,
		&conn.PrimaryId,
		&conn.SecondaryId,
		&conn.PrimaryName,
		&conn.SecondaryName,
		&conn.CreatedAt,
	)

	return conn, err
}

// ListConnections matches on common_id containing the user id; connection
// ids embed both member ids.
func (db *PgThreadlyRepository) ListConnections(userId string) ([]Connection, error) {
	rows, err := db.conn.Query(
		"SELECT common_id, primary_id, secondary_id, primary_name, secondary_name, created_at "+
			"FROM active_connections WHERE common_id LIKE '%' || $1 || '%'",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(
			&c.CommonId,
			&c.PrimaryId,
			&c.SecondaryId,
			&c.PrimaryName,
			&c.SecondaryName,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}

	return conns, rows.Err()
}
