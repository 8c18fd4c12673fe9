// Package backend provides the Vendora API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/autosave: Design autosave session management
// - internal/designs: Store design blocks, validation, and diffing
// - internal/realtime: WebSocket hub for live store updates
// - internal/ticker: Price ticker snapshots and history
// - internal/search: Elasticsearch indexing and queries
// - internal/storage: File storage (S3) operations
// - internal/database: Database connection and migrations
// - internal/email: Email service integration
// - internal/middleware: HTTP middleware (rate limiting, etc.)
// - internal/maintenance: Retention purges and scheduled cleanup
// - internal/seed: Development fixture data

// See the individual package documentation for detailed API reference.
package backend
