package constants

import "time"

const (
	DefaultPollInterval      = 10 * time.Second
	DefaultAuthRetryInterval = 15 * time.Second
	MinPollInterval          = 2 * time.Second
	PollTickResolution       = 500 * time.Millisecond
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	ReconcileTimeout   = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	PlayerListDefaultLimit = 50
	PlayerListMaxLimit     = 500
)

const (
	// base64 of {"platformType":"PC","platformOS":"Windows",...}, sent by every
	// first-party client request.
	DefaultClientPlatform = "ew0KCSJwbGF0Zm9ybVR5cGUiOiAiUEMiLA0KCSJwbGF0Zm9ybU9TIjogIldpbmRvd3MiLA0KCSJwbGF0Zm9ybU9TVmVyc2lvbiI6ICIxMC4wLjE5MDQyLjEuMjU2LjY0Yml0IiwNCgkicGxhdGZvcm1DaGlwc2V0IjogIlVua25vd24iDQp9"
	DefaultGLZURL         = "https://glz-{region}-1.{shard}.a.pvp.net"
	DefaultPDURL          = "https://pd.{shard}.a.pvp.net"
)
