package user

import (
	"database/sql"

	"oldb/pkg/logger"
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) GetByEmail(email string) (*User, error) {
	var u User
	err := r.DB.QueryRow(
		`SELECT id, email, password_hash, role, unrestricted, datetime_entered, datetime_modified
		 FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.passwordHash, &u.Role, &u.Unrestricted,
			&u.DatetimeEntered, &u.DatetimeModified)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user by email %s: %v", email, err)
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Count() (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *Repository) Create(email, passwordHash, role string, unrestricted bool) (int, error) {
	var id int
	err := r.DB.QueryRow(
		`INSERT INTO users (email, password_hash, role, unrestricted) VALUES ($1, $2, $3, $4) RETURNING id`,
		email, passwordHash, role, unrestricted).Scan(&id)
	if err != nil {
		logger.Sugar.Errorf("Failed to create user %s: %v", email, err)
	}
	return id, err
}

// Minis lists every user in abbreviated form, for client-side pickers.
func (r *Repository) Minis() ([]Mini, error) {
	rows, err := r.DB.Query(`SELECT id, email, role FROM users ORDER BY id ASC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list users: %v", err)
		return nil, err
	}
	defer rows.Close()

	minis := []Mini{}
	for rows.Next() {
		var m Mini
		if err := rows.Scan(&m.ID, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		minis = append(minis, m)
	}
	return minis, rows.Err()
}

// Unrestricted reports whether the user may access restricted corpus files.
func (r *Repository) Unrestricted(userID int) (bool, error) {
	var unrestricted bool
	err := r.DB.QueryRow(`SELECT unrestricted FROM users WHERE id = $1`, userID).
		Scan(&unrestricted)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to check restriction for user %d: %v", userID, err)
	}
	return unrestricted, err
}
