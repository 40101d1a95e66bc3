// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Publication: Repository layout, artifact naming, and branch prefixes.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "kanko-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout must outlast a full submission: lock wait, commit and merge request.
	DefaultWriteTimeout = 150 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 140 * time.Second

	// StatementTimeout bounds every SQL statement on a pooled connection.
	StatementTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// GitHubRequestsPerSecond keeps the repository host well below the secondary rate limit.
	GitHubRequestsPerSecond = 5.0
)

// # External Calls

const (
	// RetryBaseDelay is the first backoff step; it doubles per attempt.
	RetryBaseDelay = 500 * time.Millisecond

	// RetryMaxDelay caps a single backoff step.
	RetryMaxDelay = 8 * time.Second
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in operator JWTs.
	AuthIssuer = "kanko.tokistorage"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldMessage = "message"
	FieldSuccess = "success"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaKanko = "kanko"
)

// # Redis Prefixes

const (
	// RedisPrefixSeriesLock namespaces the per-series mutual exclusion keys.
	RedisPrefixSeriesLock = "lock:series:"
)

// # Repository Layout

const (
	// RepoNamePrefix is prepended to a client ID to name its repository.
	RepoNamePrefix = "newsletter-client-"

	// MainBranch is the primary line every submission merges into.
	MainBranch = "main"

	// SubmitBranchPrefix scopes each submission's isolated branch.
	SubmitBranchPrefix = "submit/"

	PathClientConfig = "client-config.json"
	PathSchedule     = "schedule.json"
	PathIndex        = "index.html"
	PathWorkflow     = ".github/workflows/auto-merge.yml"
	PathMaterials    = "materials"
	PathOutput       = "output"

	// ArtifactPrefix plus the five-digit serial names each artifact (TQ-00001.pdf).
	ArtifactPrefix = "TQ-"
)
