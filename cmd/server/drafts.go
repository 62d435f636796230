package main

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/db"
	"github.com/Nixie-Tech-LLC/irrigo/internal/drafts"
	"github.com/Nixie-Tech-LLC/irrigo/internal/redis"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

// InitDrafts selects the durable draft repository. store and rdb are nil
// when their backends are not configured; LoadEnvironment has already checked
// the one DRAFT_BACKEND needs.
func InitDrafts(env Environment, store db.Store, rdb *goredis.Client) scheduler.DraftRepository {
	switch env.DraftBackend {
	case "redis":
		log.Info().Str("address", env.RedisAddress).Msg("drafts stored in redis")
		return redis.NewDrafts(rdb, redis.DefaultDraftTTL)
	case "postgres":
		log.Info().Msg("drafts stored in postgres")
		return db.DraftRepository{Store: store}
	case "memory":
		log.Warn().Msg("drafts kept in memory; they are lost on restart")
		return drafts.NewMemory()
	}

	disk := drafts.NewDisk(env.DraftPath)
	log.Info().Str("path", env.DraftPath).Strs("clients", disk.Clients(context.Background())).Msg("drafts stored on disk")
	return disk
}
