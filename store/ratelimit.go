package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// rateWindowSeconds is the fixed rate-limit window.
const rateWindowSeconds = 60

// CheckRateLimit applies a fixed-window counter per client address and
// reports whether the request may proceed.
//
// A new address creates its row and is allowed. An address whose window is
// 60s or older resets to a count of 1 and is allowed. Within the window the
// counter increments until the limit, then requests are denied.
//
// Storage errors fail open when configured (the default): blocking
// legitimate visitors because the counter table hiccuped is worse than
// letting a burst through on a personal site.
//
// The window check compares wall clocks without a concurrency guard, so
// simultaneous requests from one address can briefly exceed the limit. Known
// limitation, acceptable at this traffic level.
func (s *Store) CheckRateLimit(ctx context.Context, clientAddr string) bool {
	if !s.limitEnabled {
		return true
	}
	if clientAddr == "" {
		return false
	}

	allowed, err := s.checkRateLimit(ctx, clientAddr)
	if err != nil {
		log.Printf("[store] Rate limit check failed for %s: %v", clientAddr, err)
		return s.failOpen
	}
	return allowed
}

func (s *Store) checkRateLimit(ctx context.Context, clientAddr string) (bool, error) {
	now := s.now().Unix()

	var count int
	var firstAt int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT request_count, first_request_at
		FROM rag_rate_limits WHERE ip_address = ?`), clientAddr,
	).Scan(&count, &firstAt)

	switch {
	case err == sql.ErrNoRows:
		_, err := s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO rag_rate_limits (ip_address, request_count, first_request_at, last_request_at)
			VALUES (?, 1, ?, ?)`), clientAddr, now, now)
		if err != nil {
			return false, fmt.Errorf("create rate limit row: %w", err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("query rate limit: %w", err)
	}

	if now-firstAt >= rateWindowSeconds {
		_, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE rag_rate_limits
			SET request_count = 1, first_request_at = ?, last_request_at = ?
			WHERE ip_address = ?`), now, now, clientAddr)
		if err != nil {
			return false, fmt.Errorf("reset rate limit window: %w", err)
		}
		return true, nil
	}

	if count >= s.maxPerMinute {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		UPDATE rag_rate_limits
		SET request_count = request_count + 1, last_request_at = ?
		WHERE ip_address = ?`), now, clientAddr)
	if err != nil {
		return false, fmt.Errorf("increment rate limit: %w", err)
	}
	return true, nil
}

// ResetRateLimits clears all rate-limit counters. Admin action.
func (s *Store) ResetRateLimits(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rag_rate_limits`); err != nil {
		return fmt.Errorf("reset rate limits: %w", err)
	}
	return nil
}
