package types

type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeProd  RunMode = "prod"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type CacheBackend string

const (
	CacheBackendInMemory CacheBackend = "inmemory"
	CacheBackendRedis    CacheBackend = "redis"
)
