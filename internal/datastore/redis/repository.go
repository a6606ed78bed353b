package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"redisclient-go/internal/models"
	"redisclient-go/pkg/redisclient"
)

// maxUsernameLen matches the maxlen of models.Account.Username, in bytes.
const maxUsernameLen = 32

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidLevels   = errors.New("levels must be positive")
	ErrSessionNotFound = errors.New("session not found")
)

// AccountRepository stores accounts as Redis hashes with a username index,
// a creation-time index, a VIP index and a per-account event log.
type AccountRepository struct {
	client      *redisclient.Client
	db          int
	eventsLimit int64
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountRepository creates a repository that keeps its keys in database db.
func NewAccountRepository(client *redisclient.Client, db int, eventsLimit int64, logger *zap.Logger) *AccountRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventsLimit < 1 {
		eventsLimit = 100
	}
	return &AccountRepository{
		client:      client,
		db:          db,
		eventsLimit: eventsLimit,
		logger:      logger,
		now:         time.Now,
	}
}

// Create registers a new account. The username check and the writes are not
// atomic; two concurrent creates of one username can both succeed.
func (r *AccountRepository) Create(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error) {
	if req.Username == "" || len(req.Username) > maxUsernameLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUsername, req.Username)
	}

	taken, err := r.UsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	id, err := r.client.String.IncrBy(ctx, r.db, SequenceKey(), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate account id: %w", err)
	}

	now := r.now()
	acct := &models.Account{
		ID:        id,
		Username:  req.Username,
		Email:     req.Email,
		Active:    true,
		CreatedAt: now.Unix(),
	}

	err = r.client.Pipelined(ctx, func(p *redisclient.Pipeline) error {
		if err := p.Hash.HSetAll(ctx, r.db, AccountKey(id), acct); err != nil {
			return err
		}
		if err := p.Set.SAdd(ctx, r.db, UsernamesKey(), acct.Username); err != nil {
			return err
		}
		if err := p.SortedSet.ZAdd(ctx, r.db, AccountsKey(), float64(acct.CreatedAt), member(id)); err != nil {
			return err
		}
		return r.appendEvent(ctx, p, id, "created", now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store account: %w", err)
	}

	r.logger.Info("account created",
		zap.Int64("id", id),
		zap.String("username", acct.Username),
	)
	return acct, nil
}

// Get loads an account.
func (r *AccountRepository) Get(ctx context.Context, id int64) (*models.Account, error) {
	var acct models.Account
	if err := r.client.Hash.HGetAll(ctx, r.db, AccountKey(id), &acct); err != nil {
		if errors.Is(err, redisclient.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return &acct, nil
}

// Update applies the non-nil fields of req. An empty email removes it.
func (r *AccountRepository) Update(ctx context.Context, id int64, req models.UpdateAccountRequest) (*models.Account, error) {
	if err := r.mustExist(ctx, id); err != nil {
		return nil, err
	}

	var (
		patch       models.Account
		fields      []string
		removeEmail bool
	)
	if req.Email != nil {
		if *req.Email == "" {
			removeEmail = true
		} else {
			patch.Email = *req.Email
			fields = append(fields, "email")
		}
	}
	if req.Active != nil {
		patch.Active = *req.Active
		fields = append(fields, "active")
	}

	if len(fields) > 0 || removeEmail {
		err := r.client.Pipelined(ctx, func(p *redisclient.Pipeline) error {
			if len(fields) > 0 {
				if err := p.Hash.HMSet(ctx, r.db, AccountKey(id), &patch, fields...); err != nil {
					return err
				}
			}
			if removeEmail {
				if err := p.Hash.HDel(ctx, r.db, AccountKey(id), "email"); err != nil {
					return err
				}
			}
			return r.appendEvent(ctx, p, id, "updated", r.now())
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update account %d: %w", id, err)
		}
	}

	return r.Get(ctx, id)
}

// PromoteVIP raises the account's VIP level by levels and returns the new level.
func (r *AccountRepository) PromoteVIP(ctx context.Context, id int64, levels int64) (int, error) {
	if levels <= 0 {
		return 0, ErrInvalidLevels
	}
	if err := r.mustExist(ctx, id); err != nil {
		return 0, err
	}

	err := r.client.Pipelined(ctx, func(p *redisclient.Pipeline) error {
		if err := p.Hash.HIncrBy(ctx, r.db, AccountKey(id), "vip", levels); err != nil {
			return err
		}
		if err := p.SortedSet.ZIncrBy(ctx, r.db, VIPKey(), float64(levels), member(id)); err != nil {
			return err
		}
		return r.appendEvent(ctx, p, id, "promoted", r.now())
	})
	if err != nil {
		return 0, fmt.Errorf("failed to promote account %d: %w", id, err)
	}

	var acct models.Account
	if err := r.client.Hash.HGet(ctx, r.db, AccountKey(id), &acct, "vip"); err != nil {
		return 0, fmt.Errorf("failed to read vip level of account %d: %w", id, err)
	}
	return acct.VIP, nil
}

// Delete removes the account with its index entries and events. Open
// sessions are left to expire.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	acct, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	err = r.client.Pipelined(ctx, func(p *redisclient.Pipeline) error {
		if err := p.Key.Del(ctx, r.db, AccountKey(id)); err != nil {
			return err
		}
		if err := p.Key.Del(ctx, r.db, EventsKey(id)); err != nil {
			return err
		}
		if acct.Username != "" {
			if err := p.Set.SRem(ctx, r.db, UsernamesKey(), acct.Username); err != nil {
				return err
			}
		}
		if err := p.SortedSet.ZRem(ctx, r.db, AccountsKey(), member(id)); err != nil {
			return err
		}
		return p.SortedSet.ZRem(ctx, r.db, VIPKey(), member(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}

	r.logger.Info("account deleted", zap.Int64("id", id))
	return nil
}

// List returns up to limit accounts ordered by creation time, starting at
// offset, and the total number of accounts.
func (r *AccountRepository) List(ctx context.Context, offset, limit int64) (*models.AccountList, error) {
	total, _, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	list := &models.AccountList{Accounts: []models.Account{}, Total: total}
	if limit <= 0 || offset < 0 {
		return list, nil
	}

	ids, err := r.client.SortedSet.ZRange(ctx, r.db, AccountsKey(), offset, offset+limit-1)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if err := r.load(ctx, ids, list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreatedBetween returns the accounts created in [from, to].
func (r *AccountRepository) CreatedBetween(ctx context.Context, from, to time.Time) ([]models.Account, error) {
	ids, err := r.client.SortedSet.ZRangeByScore(ctx, r.db, AccountsKey(), float64(from.Unix()), float64(to.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by creation time: %w", err)
	}

	list := &models.AccountList{Accounts: []models.Account{}}
	if err := r.load(ctx, ids, list); err != nil {
		return nil, err
	}
	return list.Accounts, nil
}

// TopVIP returns the n accounts with the highest VIP level, highest first.
func (r *AccountRepository) TopVIP(ctx context.Context, n int64) ([]redisclient.ScoredMember, error) {
	if n <= 0 {
		return []redisclient.ScoredMember{}, nil
	}
	top, err := r.client.SortedSet.ZRangeByScoreWithScores(ctx, r.db, VIPKey(), 1, math.Inf(1))
	if err != nil {
		return nil, fmt.Errorf("failed to query vip accounts: %w", err)
	}

	// ZRANGEBYSCORE is ascending.
	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}
	if int64(len(top)) > n {
		top = top[:n]
	}
	return top, nil
}

// Count returns the number of accounts and how many of them are VIP.
func (r *AccountRepository) Count(ctx context.Context) (total, vip int64, err error) {
	total, err = r.client.SortedSet.ZCount(ctx, r.db, AccountsKey(), math.Inf(-1), math.Inf(1))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	vip, err = r.client.SortedSet.ZCount(ctx, r.db, VIPKey(), 1, math.Inf(1))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count vip accounts: %w", err)
	}
	return total, vip, nil
}

// Events returns the newest events of the account, newest first.
func (r *AccountRepository) Events(ctx context.Context, id int64) ([]models.AccountEvent, error) {
	if err := r.mustExist(ctx, id); err != nil {
		return nil, err
	}

	raw, err := r.client.List.LRange(ctx, r.db, EventsKey(id), 0, r.eventsLimit-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read events of account %d: %w", id, err)
	}

	events := make([]models.AccountEvent, 0, len(raw))
	for _, s := range raw {
		var ev models.AccountEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			r.logger.Warn("skipping malformed account event",
				zap.Int64("id", id),
				zap.String("event", s),
				zap.Error(err),
			)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// UsernameTaken reports whether username belongs to an account.
func (r *AccountRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	taken, err := r.client.Set.SIsMember(ctx, r.db, UsernamesKey(), username)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return taken, nil
}

// OpenSession issues a session token for the account that expires after ttl.
func (r *AccountRepository) OpenSession(ctx context.Context, id int64, ttl time.Duration) (string, error) {
	if err := r.mustExist(ctx, id); err != nil {
		return "", err
	}

	token := uuid.NewString()
	if err := r.client.String.Set(ctx, r.db, SessionKey(token), member(id), ttl); err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}
	return token, nil
}

// Session returns the account ID behind token and the time it has left.
func (r *AccountRepository) Session(ctx context.Context, token string) (int64, time.Duration, error) {
	v, err := r.client.String.Get(ctx, r.db, SessionKey(token))
	if errors.Is(err, redisclient.ErrNotFound) {
		return 0, 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read session: %w", err)
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("corrupt session %s: %w", token, err)
	}

	ttl, err := r.client.Key.TTL(ctx, r.db, SessionKey(token))
	if errors.Is(err, redisclient.ErrNotFound) {
		return 0, 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read session ttl: %w", err)
	}
	return id, ttl, nil
}

// RefreshSession resets the session's expiry to ttl. A non-positive ttl
// makes the session permanent.
func (r *AccountRepository) RefreshSession(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := r.client.Key.Exists(ctx, r.db, SessionKey(token))
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}

	if ttl <= 0 {
		err = r.client.Key.Persist(ctx, r.db, SessionKey(token))
	} else {
		err = r.client.Key.Expire(ctx, r.db, SessionKey(token), ttl)
	}
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	return nil
}

// CloseSession removes the session. Closing an unknown session is not an error.
func (r *AccountRepository) CloseSession(ctx context.Context, token string) error {
	if err := r.client.Key.Del(ctx, r.db, SessionKey(token)); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

func (r *AccountRepository) mustExist(ctx context.Context, id int64) error {
	ok, err := r.client.Key.Exists(ctx, r.db, AccountKey(id))
	if err != nil {
		return fmt.Errorf("failed to check account %d: %w", id, err)
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}

// load appends the accounts named by ids to list. IDs whose hash is gone
// are skipped.
func (r *AccountRepository) load(ctx context.Context, ids []string, list *models.AccountList) error {
	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			r.logger.Warn("skipping malformed account id", zap.String("id", s))
			continue
		}
		acct, err := r.Get(ctx, id)
		if errors.Is(err, ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		list.Accounts = append(list.Accounts, *acct)
	}
	return nil
}

func (r *AccountRepository) appendEvent(ctx context.Context, p *redisclient.Pipeline, id int64, event string, at time.Time) error {
	b, err := json.Marshal(models.AccountEvent{Event: event, At: at.Unix()})
	if err != nil {
		return err
	}
	if err := p.List.LPush(ctx, r.db, EventsKey(id), string(b)); err != nil {
		return err
	}
	return p.List.LTrim(ctx, r.db, EventsKey(id), 0, r.eventsLimit-1)
}

func member(id int64) string {
	return strconv.FormatInt(id, 10)
}
