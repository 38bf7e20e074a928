// Package postgresdb provides a PostgreSQL-based implementation of the
// storage interface for persisting users and their contacts. The
// schema is managed with goose migrations; email uniqueness is backed
// by a unique index on LOWER(email) and the user→contact cascade is a
// foreign key with ON DELETE CASCADE.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

// PostgresDB is a PostgreSQL-backed implementation of the address-book
// storage. All operations honor the configured connection timeout.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return result, nil
}

func (db *PostgresDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.connectionTimeout)
}

func (db *PostgresDB) userExists(ctx context.Context, userID string) error {
	var one int
	err := db.database.
		QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrUserNotFound
	}

	return err
}

// CreateUser inserts the user and its (normally empty) contacts.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	transaction, err := db.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer transaction.Rollback()

	_, err = transaction.ExecContext(
		ctx,
		`INSERT INTO users (id, name, email, password, created_at) VALUES ($1, $2, $3, $4, $5)`,
		usr.ID, usr.Name, usr.Email, usr.Password, usr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	for i := range usr.Contacts {
		if err := insertContact(ctx, transaction, usr.ID, &usr.Contacts[i]); err != nil {
			return err
		}
	}

	return transaction.Commit()
}

func insertContact(ctx context.Context, tx *sql.Tx, userID string, contact *models.Contact) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO contacts
			(id, user_id, name, email, cpf, phone,
			 cep, street, number, complement, neighborhood, city, state,
			 latitude, longitude, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		contact.ID, userID, contact.Name, contact.Email, contact.CPF, contact.Phone,
		contact.Address.CEP, contact.Address.Street, contact.Address.Number,
		contact.Address.Complement, contact.Address.Neighborhood,
		contact.Address.City, contact.Address.State,
		contact.Location.Latitude, contact.Location.Longitude, contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}

	return nil
}

func (db *PostgresDB) getUserByQuery(ctx context.Context, query, arg string) (*models.User, error) {
	usr := &models.User{}
	err := db.database.
		QueryRowContext(ctx, query, arg).
		Scan(&usr.ID, &usr.Name, &usr.Email, &usr.Password, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	usr.Contacts, err = db.getContactsLoaded(ctx, usr.ID)
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// GetUserByID loads the user and its contact collection.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.getUserByQuery(
		ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE id = $1`,
		userID,
	)
}

// GetUserByEmail matches the email case-insensitively.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.getUserByQuery(
		ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE LOWER(email) = LOWER($1)`,
		email,
	)
}

// UpdateUser replaces the mutable user fields; created_at and contacts
// are untouched.
func (db *PostgresDB) UpdateUser(ctx context.Context, usr *models.User) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	result, err := db.database.ExecContext(
		ctx,
		`UPDATE users SET name = $2, email = $3, password = $4 WHERE id = $1`,
		usr.ID, usr.Name, usr.Email, usr.Password,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// DeleteUser removes the user; contacts go with it via the cascade.
func (db *PostgresDB) DeleteUser(ctx context.Context, userID string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	result, err := db.database.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (db *PostgresDB) getContactsLoaded(ctx context.Context, userID string) ([]models.Contact, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, user_id, name, email, cpf, phone,
				cep, street, number, complement, neighborhood, city, state,
				latitude, longitude, created_at
			FROM contacts
			WHERE user_id = $1
			ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var contact models.Contact
		err := rows.Scan(
			&contact.ID, &contact.UserID, &contact.Name, &contact.Email,
			&contact.CPF, &contact.Phone,
			&contact.Address.CEP, &contact.Address.Street, &contact.Address.Number,
			&contact.Address.Complement, &contact.Address.Neighborhood,
			&contact.Address.City, &contact.Address.State,
			&contact.Location.Latitude, &contact.Location.Longitude,
			&contact.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

// GetContacts returns the owner's contacts in insertion order.
func (db *PostgresDB) GetContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if err := db.userExists(ctx, userID); err != nil {
		return nil, err
	}

	return db.getContactsLoaded(ctx, userID)
}

// AddContact appends the contact to the owner's collection.
func (db *PostgresDB) AddContact(ctx context.Context, userID string, contact *models.Contact) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	transaction, err := db.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer transaction.Rollback()

	if err := db.userExists(ctx, userID); err != nil {
		return err
	}

	if err := insertContact(ctx, transaction, userID, contact); err != nil {
		return err
	}

	return transaction.Commit()
}

// UpdateContact replaces the owner's contact with the same id.
func (db *PostgresDB) UpdateContact(ctx context.Context, userID string, contact *models.Contact) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if err := db.userExists(ctx, userID); err != nil {
		return err
	}

	result, err := db.database.ExecContext(
		ctx,
		`UPDATE contacts
			SET name = $3, email = $4, cpf = $5, phone = $6,
				cep = $7, street = $8, number = $9, complement = $10,
				neighborhood = $11, city = $12, state = $13,
				latitude = $14, longitude = $15
			WHERE id = $1 AND user_id = $2`,
		contact.ID, userID, contact.Name, contact.Email, contact.CPF, contact.Phone,
		contact.Address.CEP, contact.Address.Street, contact.Address.Number,
		contact.Address.Complement, contact.Address.Neighborhood,
		contact.Address.City, contact.Address.State,
		contact.Location.Latitude, contact.Location.Longitude,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrContactNotFound
	}

	return nil
}

// RemoveContact deletes the contact when present; deleting an absent
// contact of an existing user is a no-op.
func (db *PostgresDB) RemoveContact(ctx context.Context, userID, contactID string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if err := db.userExists(ctx, userID); err != nil {
		return err
	}

	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`,
		contactID, userID,
	)

	return err
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var count int64
	err := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)

	return count, err
}

func (db *PostgresDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var count int64
	err := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&count)

	return count, err
}

// Ping checks the database connection.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.database.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}
