package auth

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type AuditEvent struct {
	EventType string         `json:"eventType"`
	AccountID int64          `json:"accountId,omitempty"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"userAgent"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// AuditLogger appends events to a capped Redis list per account.
type AuditLogger struct {
	Redis  *redis.Client
	Prefix string
	MaxLen int64
}

func (a *AuditLogger) key(accountID int64) string {
	if accountID == 0 {
		return a.Prefix + "audit"
	}
	return a.Prefix + "audit:" + strconv.FormatInt(accountID, 10)
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := a.key(e.AccountID)
	pipe := a.Redis.Pipeline()
	pipe.RPush(ctx, key, data)
	if a.MaxLen > 0 {
		pipe.LTrim(ctx, key, -a.MaxLen, -1)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n of the newest events for an account, oldest first.
func (a *AuditLogger) Recent(ctx context.Context, accountID int64, n int64) ([]AuditEvent, error) {
	raw, err := a.Redis.LRange(ctx, a.key(accountID), -n, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]AuditEvent, 0, len(raw))
	for _, item := range raw {
		var e AuditEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
