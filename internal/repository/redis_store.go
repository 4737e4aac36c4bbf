package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

const redisWatchRetries = 5

// createTicketScript writes the ticket and its index entries in one step.
// The ticket key is set last so a failed index write leaves no ticket behind.
var createTicketScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
if ARGV[4] == "1" then
    redis.call("ZADD", KEYS[3], ARGV[2], ARGV[3])
end
redis.call("SET", KEYS[1], ARGV[1])
return 1
`)

var _ Store = (*RedisStore)(nil)

// RedisStore is a durable registry kept in Redis.
//
// Layout under the configured prefix:
//
//	user:<email>        JSON user, created with SETNX
//	ticket:<mint>       JSON ticket, created with its index entries by script
//	owner:<wallet>      ZSET of mints scored by creation time
//	listed              ZSET of listed mints scored by creation time
//	resale:<mint>       LIST of JSON resale records, append-only
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a store using client and key prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

type redisUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type redisTicket struct {
	Mint          string          `json:"mint"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	EventDate     string          `json:"eventDate"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Image         string          `json:"image"`
	Listed        bool            `json:"listed"`
	Owner         string          `json:"owner"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type redisResale struct {
	ID           string          `json:"id"`
	TicketMint   string          `json:"ticketMint"`
	FromWallet   string          `json:"fromWallet"`
	ToWallet     string          `json:"toWallet"`
	Price        decimal.Decimal `json:"price"`
	ResaleNumber int             `json:"resaleNumber"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) CreateUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(redisUser{
		ID:           user.ID,
		Name:         user.Name,
		Email:        emailKey(user.Email),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, s.key("user", emailKey(user.Email)), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *RedisStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	data, err := s.client.Get(ctx, s.key("user", emailKey(email))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec redisUser
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &domain.User{
		ID:           rec.ID,
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (s *RedisStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	data, err := encodeTicket(ticket)
	if err != nil {
		return err
	}
	listed := "0"
	if ticket.Listed {
		listed = "1"
	}
	keys := []string{s.key("ticket", ticket.Mint), s.key("owner", ticket.Owner), s.key("listed")}
	score := strconv.FormatFloat(ticketScore(ticket), 'f', -1, 64)
	created, err := createTicketScript.Run(ctx, s.client, keys, data, score, ticket.Mint, listed).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrDuplicateMint
	}
	return nil
}

func (s *RedisStore) FindTicket(ctx context.Context, mint string) (*domain.Ticket, error) {
	return s.loadTicket(ctx, s.client, mint)
}

func (s *RedisStore) ListTicketsByOwner(ctx context.Context, wallet string) ([]domain.Ticket, error) {
	return s.ticketsInSet(ctx, s.key("owner", wallet))
}

func (s *RedisStore) ListMarketplaceTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.ticketsInSet(ctx, s.key("listed"))
}

func (s *RedisStore) UpdateTicketListing(ctx context.Context, mint string, price decimal.Decimal, listed bool) error {
	return s.mutateTicket(ctx, mint, func(ticket *domain.Ticket, pipe redis.Pipeliner) {
		ticket.Price = price
		ticket.Listed = listed
		if listed {
			pipe.ZAdd(ctx, s.key("listed"), redis.Z{Score: ticketScore(ticket), Member: mint})
		} else {
			pipe.ZRem(ctx, s.key("listed"), mint)
		}
	})
}

func (s *RedisStore) UpdateTicketOwner(ctx context.Context, mint, owner string) error {
	return s.mutateTicket(ctx, mint, func(ticket *domain.Ticket, pipe redis.Pipeliner) {
		if ticket.Owner != owner {
			pipe.ZRem(ctx, s.key("owner", ticket.Owner), mint)
		}
		pipe.ZAdd(ctx, s.key("owner", owner), redis.Z{Score: ticketScore(ticket), Member: mint})
		pipe.ZRem(ctx, s.key("listed"), mint)
		ticket.Owner = owner
		ticket.Listed = false
	})
}

func (s *RedisStore) AppendResaleHistory(ctx context.Context, record *domain.ResaleRecord) error {
	data, err := json.Marshal(redisResale{
		ID:           record.ID,
		TicketMint:   record.TicketMint,
		FromWallet:   record.FromWallet,
		ToWallet:     record.ToWallet,
		Price:        record.Price,
		ResaleNumber: record.ResaleNumber,
		CreatedAt:    record.CreatedAt,
	})
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.key("resale", record.TicketMint), data).Err()
}

func (s *RedisStore) CountResaleHistory(ctx context.Context, mint string) (int, error) {
	n, err := s.client.LLen(ctx, s.key("resale", mint)).Result()
	return int(n), err
}

func (s *RedisStore) ListResaleHistory(ctx context.Context, mint string) ([]domain.ResaleRecord, error) {
	items, err := s.client.LRange(ctx, s.key("resale", mint), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := make([]domain.ResaleRecord, 0, len(items))
	for _, item := range items {
		var rec redisResale
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode resale record: %w", err)
		}
		result = append(result, domain.ResaleRecord{
			ID:           rec.ID,
			TicketMint:   rec.TicketMint,
			FromWallet:   rec.FromWallet,
			ToWallet:     rec.ToWallet,
			Price:        rec.Price,
			ResaleNumber: rec.ResaleNumber,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return result, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) loadTicket(ctx context.Context, getter stringGetter, mint string) (*domain.Ticket, error) {
	data, err := getter.Get(ctx, s.key("ticket", mint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeTicket(data)
}

// mutateTicket applies change under WATCH so concurrent writers to the same
// mint retry instead of overwriting each other. Absent mints are a no-op.
func (s *RedisStore) mutateTicket(ctx context.Context, mint string, change func(*domain.Ticket, redis.Pipeliner)) error {
	key := s.key("ticket", mint)
	txf := func(tx *redis.Tx) error {
		ticket, err := s.loadTicket(ctx, tx, mint)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			change(ticket, pipe)
			data, err := encodeTicket(ticket)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < redisWatchRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *RedisStore) ticketsInSet(ctx context.Context, setKey string) ([]domain.Ticket, error) {
	mints, err := s.client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := []domain.Ticket{}
	if len(mints) == 0 {
		return result, nil
	}
	keys := make([]string, len(mints))
	for i, mint := range mints {
		keys[i] = s.key("ticket", mint)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		ticket, err := decodeTicket([]byte(raw))
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (s *RedisStore) key(parts ...string) string {
	key := s.prefix
	for _, part := range parts {
		if key == "" {
			key = part
			continue
		}
		key += ":" + part
	}
	return key
}

func ticketScore(ticket *domain.Ticket) float64 {
	return float64(ticket.CreatedAt.UnixMilli())
}

func encodeTicket(ticket *domain.Ticket) ([]byte, error) {
	return json.Marshal(redisTicket{
		Mint:          ticket.Mint,
		Name:          ticket.Name,
		Description:   ticket.Description,
		EventDate:     ticket.EventDate,
		Price:         ticket.Price,
		OriginalPrice: ticket.OriginalPrice,
		Image:         ticket.Image,
		Listed:        ticket.Listed,
		Owner:         ticket.Owner,
		CreatedAt:     ticket.CreatedAt,
	})
}

func decodeTicket(data []byte) (*domain.Ticket, error) {
	var rec redisTicket
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	return &domain.Ticket{
		Mint:          rec.Mint,
		Name:          rec.Name,
		Description:   rec.Description,
		EventDate:     rec.EventDate,
		Price:         rec.Price,
		OriginalPrice: rec.OriginalPrice,
		Image:         rec.Image,
		Listed:        rec.Listed,
		Owner:         rec.Owner,
		CreatedAt:     rec.CreatedAt,
	}, nil
}
