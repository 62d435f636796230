package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	draftPrefix   = "irrigo:draft:"
	NoticeChannel = "irrigo:notices"

	DefaultDraftTTL = 7 * 24 * time.Hour
)

var Rdb *redis.Client

func InitRedis(redisAddress string, redisUsername string, redisPassword string) *redis.Client {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
	return Rdb
}

// Drafts stores one pending draft per client, expiring after TTL of inactivity.
type Drafts struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDrafts(rdb *redis.Client, ttl time.Duration) *Drafts {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &Drafts{rdb: rdb, ttl: ttl}
}

func (d *Drafts) Save(ctx context.Context, draft model.Draft) error {
	b, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := d.rdb.Set(ctx, draftPrefix+draft.ClientID, b, d.ttl).Err(); err != nil {
		return fmt.Errorf("store draft %s: %w", draft.ClientID, err)
	}
	return nil
}

func (d *Drafts) Load(ctx context.Context, clientID string) (*model.Draft, error) {
	b, err := d.rdb.Get(ctx, draftPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", clientID, err)
	}
	var draft model.Draft
	if err := json.Unmarshal(b, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", clientID, err)
	}
	return &draft, nil
}

func (d *Drafts) Clear(ctx context.Context, clientID string) error {
	return d.rdb.Del(ctx, draftPrefix+clientID).Err()
}

// Notifier fans notices out to other console instances over pub/sub. Notices
// are stamped with origin so an instance can skip its own.
type Notifier struct {
	rdb    *redis.Client
	origin string
}

func NewNotifier(rdb *redis.Client, origin string) *Notifier {
	return &Notifier{rdb: rdb, origin: origin}
}

func (n *Notifier) Publish(ctx context.Context, notice model.Notice) error {
	notice.Origin = n.origin
	b, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, NoticeChannel, b).Err()
}

// Subscribe delivers notices published by other instances until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, handle func(model.Notice)) error {
	sub := n.rdb.Subscribe(ctx, NoticeChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", NoticeChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var notice model.Notice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				log.Warn().Err(err).Msg("dropping malformed notice")
				continue
			}
			if n.origin != "" && notice.Origin == n.origin {
				continue
			}
			handle(notice)
		}
	}
}
