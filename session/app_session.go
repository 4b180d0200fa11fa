package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

// AppSession Subject 是身份提供方的用户标识，本服务不维护用户表
type AppSession struct {
	Subject   string `json:"sub"`
	Email     string `json:"email,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func key(id string) string            { return fmt.Sprintf("hvac:sess:%s", id) }
func subjectSetKey(sub string) string { return fmt.Sprintf("hvac:subject_sessions:%s", sub) }

func (s *AppSessionStore) Create(ctx context.Context, id, subject, email string) error {
	now := time.Now()
	b, _ := json.Marshal(AppSession{
		Subject:   subject,
		Email:     email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, subjectSetKey(subject), id)
	pipe.Expire(ctx, subjectSetKey(subject), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id) // 忽略失败
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil {
		pipe.SRem(ctx, subjectSetKey(as.Subject), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForSubject 上游账号被停用时，撤销其所有会话
func (s *AppSessionStore) RevokeAllForSubject(ctx context.Context, subject string) error {
	ids, err := s.rdb.SMembers(ctx, subjectSetKey(subject)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, subjectSetKey(subject))
	_, err = pipe.Exec(ctx)
	return err
}
