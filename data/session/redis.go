package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/config"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *RedisSession) SetSession(ctx context.Context, token string, session model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetSession start", slog.String("rqID", rqID))

	sessionJson, err := json.Marshal(session)
	if err != nil {
		slog.Error("can't marshall session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall session")
	}

	_, err = s.redis.Set(ctx, sessionKey(token), sessionJson, s.cfg.SessionExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetSession completed", slog.String("rqID", rqID))

	return nil
}

func (s *RedisSession) GetSession(ctx context.Context, token string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSession start", slog.String("rqID", rqID))

	res, err := s.redis.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}

	session := model.Session{}
	err = json.Unmarshal([]byte(res), &session)
	if err != nil {
		slog.Error("can't unmarshall session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, errors.New("can't unmarshall session")
	}

	slog.Debug("GetSession finished", slog.String("rqID", rqID))

	return session, nil
}

func (s *RedisSession) DeleteSession(ctx context.Context, token string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("DeleteSession start", slog.String("rqID", rqID))

	_, err := s.redis.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("DeleteSession completed", slog.String("rqID", rqID))

	return nil
}
