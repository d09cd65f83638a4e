package redis

import "time"

// RedisConfig selects single node mode when ClusterAddr is empty, and
// cluster mode otherwise.
type RedisConfig struct {
	Addr        string
	ClusterAddr []string
	Username    string
	Password    string
	PoolSize    int

	MaxRedirects   int
	ReadOnly       bool
	RouteByLatency bool
	RouteRandomly  bool

	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	MinIdleConns       int
	MaxConnAge         time.Duration
	PoolFIFO           bool
	PoolTimeout        time.Duration
	IdleTimeout        time.Duration
	IdleCheckFrequency time.Duration
}

// DefaultRedisConfig returns a single node config for addr.
func DefaultRedisConfig(addr string) *RedisConfig {
	return &RedisConfig{
		Addr:        addr,
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
	}
}
