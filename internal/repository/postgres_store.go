package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

const uniqueViolation = "23505"

var errPostgresNotConfigured = errors.New("postgres pool not configured")

var _ Store = (*PostgresStore)(nil)

// PostgresStore is the durable registry backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool. A nil pool yields a store whose calls all fail,
// which the Registry treats as an unavailable backend.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const ticketColumns = `mint, name, description, event_date, price, original_price, image, listed, owner, created_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errPostgresNotConfigured
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) error {
	if s.pool == nil {
		return errPostgresNotConfigured
	}
	const query = `
        INSERT INTO users (id, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		emailKey(user.Email),
		user.PasswordHash,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.pool == nil {
		return nil, errPostgresNotConfigured
	}
	const query = `
        SELECT id, name, email, password_hash, created_at
        FROM users WHERE email=$1`

	var user domain.User
	if err := s.pool.QueryRow(ctx, query, emailKey(email)).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if s.pool == nil {
		return errPostgresNotConfigured
	}
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.pool.Exec(ctx, query,
		ticket.Mint,
		ticket.Name,
		ticket.Description,
		ticket.EventDate,
		ticket.Price,
		ticket.OriginalPrice,
		ticket.Image,
		ticket.Listed,
		ticket.Owner,
		ticket.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateMint
	}
	return err
}

func (s *PostgresStore) FindTicket(ctx context.Context, mint string) (*domain.Ticket, error) {
	if s.pool == nil {
		return nil, errPostgresNotConfigured
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE mint=$1`
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (s *PostgresStore) ListTicketsByOwner(ctx context.Context, wallet string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE owner=$1 ORDER BY created_at ASC, mint ASC`
	return s.listTickets(ctx, query, wallet)
}

func (s *PostgresStore) ListMarketplaceTickets(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE listed = TRUE ORDER BY created_at ASC, mint ASC`
	return s.listTickets(ctx, query)
}

func (s *PostgresStore) UpdateTicketListing(ctx context.Context, mint string, price decimal.Decimal, listed bool) error {
	if s.pool == nil {
		return errPostgresNotConfigured
	}
	const query = `UPDATE tickets SET price=$1, listed=$2 WHERE mint=$3`
	_, err := s.pool.Exec(ctx, query, price, listed, mint)
	return err
}

func (s *PostgresStore) UpdateTicketOwner(ctx context.Context, mint, owner string) error {
	if s.pool == nil {
		return errPostgresNotConfigured
	}
	const query = `UPDATE tickets SET owner=$1, listed=FALSE WHERE mint=$2`
	_, err := s.pool.Exec(ctx, query, owner, mint)
	return err
}

func (s *PostgresStore) AppendResaleHistory(ctx context.Context, record *domain.ResaleRecord) error {
	if s.pool == nil {
		return errPostgresNotConfigured
	}
	const query = `
        INSERT INTO resale_history (id, ticket_mint, from_wallet, to_wallet, price, resale_number, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.TicketMint,
		record.FromWallet,
		record.ToWallet,
		record.Price,
		record.ResaleNumber,
		record.CreatedAt,
	)
	return err
}

func (s *PostgresStore) CountResaleHistory(ctx context.Context, mint string) (int, error) {
	if s.pool == nil {
		return 0, errPostgresNotConfigured
	}
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resale_history WHERE ticket_mint=$1`, mint).Scan(&count)
	return count, err
}

func (s *PostgresStore) ListResaleHistory(ctx context.Context, mint string) ([]domain.ResaleRecord, error) {
	if s.pool == nil {
		return nil, errPostgresNotConfigured
	}
	const query = `
        SELECT id, ticket_mint, from_wallet, to_wallet, price, resale_number, created_at
        FROM resale_history WHERE ticket_mint=$1 ORDER BY resale_number ASC, created_at ASC`
	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ResaleRecord{}
	for rows.Next() {
		var record domain.ResaleRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketMint,
			&record.FromWallet,
			&record.ToWallet,
			&record.Price,
			&record.ResaleNumber,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func (s *PostgresStore) listTickets(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	if s.pool == nil {
		return nil, errPostgresNotConfigured
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.Mint,
		&ticket.Name,
		&ticket.Description,
		&ticket.EventDate,
		&ticket.Price,
		&ticket.OriginalPrice,
		&ticket.Image,
		&ticket.Listed,
		&ticket.Owner,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
