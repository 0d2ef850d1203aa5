package config

import "time"

// LockConfig tunes the Redis slot guard taken before booking writes.
type LockConfig struct {
	Enabled      bool
	Prefix       string
	TTL          time.Duration
	RetryBackoff time.Duration
	Retries      int
}

func LoadLockConfig() LockConfig {
	return LockConfig{
		Enabled:      envBool("SLOT_LOCK_ENABLED", true),
		Prefix:       envStr("SLOT_LOCK_PREFIX", "arena:slot"),
		TTL:          envDur("SLOT_LOCK_TTL", 10*time.Second),
		RetryBackoff: envDur("SLOT_LOCK_RETRY_BACKOFF", 50*time.Millisecond),
		Retries:      envInt("SLOT_LOCK_RETRIES", 20),
	}
}
