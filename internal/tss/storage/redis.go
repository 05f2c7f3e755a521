package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const sessionKeyPrefix = "tss:session:"

// CachedSessionStore 在会话注册表前加一层 Redis 读穿缓存。
// 只缓存会话记录；阶段推进（compare-and-set）永远不经过缓存。
type CachedSessionStore struct {
	next   SessionStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedSessionStore 创建带 Redis 缓存的会话存储
func NewCachedSessionStore(next SessionStore, client *redis.Client, ttl time.Duration) *CachedSessionStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSessionStore{next: next, client: client, ttl: ttl}
}

// CreateSession 写库后回填缓存
func (s *CachedSessionStore) CreateSession(ctx context.Context, session *TssSession) error {
	if err := s.next.CreateSession(ctx, session); err != nil {
		return err
	}
	s.fill(ctx, session)
	return nil
}

// GetSession 优先读 Redis，未命中回退数据库
func (s *CachedSessionStore) GetSession(ctx context.Context, sessionID string) (*TssSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err == nil {
		var session TssSession
		if err := json.Unmarshal(data, &session); err == nil {
			return &session, nil
		}
		// 缓存损坏则直接穿透
		log.Ctx(ctx).Warn().Str("session_id", sessionID).Msg("Dropping corrupt session cache entry")
		s.client.Del(ctx, sessionKeyPrefix+sessionID)
	} else if !errors.Is(err, redis.Nil) {
		log.Ctx(ctx).Warn().Err(err).Msg("Session cache read failed, falling back to database")
	}

	session, err := s.next.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, session)
	return session, nil
}

// MarkSessionAborted 写库后使缓存失效
func (s *CachedSessionStore) MarkSessionAborted(ctx context.Context, sessionID string) error {
	if err := s.next.MarkSessionAborted(ctx, sessionID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("Failed to invalidate session cache")
	}
	return nil
}

func (s *CachedSessionStore) fill(ctx context.Context, session *TssSession) {
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.SessionID, data, s.ttl).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("session_id", session.SessionID).Msg("Failed to fill session cache")
	}
}
