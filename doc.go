/*
Package faststatic is a single-process static file server for HTTP/1.1.

One goroutine multiplexes the listening socket and every client connection
through epoll (Linux) or kqueue (macOS). Requests accumulate per connection
until the header block is complete, are dispatched against a document root,
and the responses are written with a bounded retry loop that waits for the
socket to drain when the kernel send buffer is full.

File bodies are served from an LRU cache that packs every entry into one
fixed-size arena. Evicting an entry compacts the arena so free space is
always contiguous at the tail.

Features

  - Readiness-driven I/O: epoll/kqueue with a self-pipe for shutdown
  - Backpressure-aware sends: frame budget, bounded retries, writable waits
  - Compacting LRU file cache with hit/miss/eviction counters
  - Keep-alive by default, Connection: close honoured
  - 308 redirect from / to the index resource, 405 for non-GET methods
  - Structured logging with log/slog, YAML/env/flag configuration

Quick Start

	fast-static --root ./public --cache-size 8MiB 8080

or with a config file:

	port: 8080
	root: ./public
	cache_size: 8MiB
	write_timeout: 1s
	log_level: debug

	FAST_STATIC_CONFIG=fast-static.yaml fast-static

Modules

  - app: Application lifecycle, logger construction, signal handling
  - config: Configuration loading (defaults, YAML, env, flags)
  - core: Event loop engine, sessions, sender, dispatcher, statistics
  - core/cache: Compacting arena LRU cache
  - core/files: Document root access and MIME types
  - core/http: Request parsing and response rendering
  - core/poller: I/O multiplexing (epoll/kqueue) and writable waits
  - core/pools: Byte buffer and session pools
  - core/observability: Request latency by outcome
*/
package faststatic
