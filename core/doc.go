// Package core contains the request code allocator, the per-space callback
// registries and the dispatch facades that resolve asynchronous results.
// Adapters (command bus, job queue, SQL activity store) depend on this
// package; core must not depend on any of them.
package core
