// Package execctl is the job scheduling and execution lifecycle core of a
// distributed data-processing cluster control plane: it accepts job
// submissions, admits them under resource and moderation constraints, drives
// each execution through its lifecycle, reacts to cluster events, and
// persists every transition durably.
//
// Sub-packages, leaves first:
//
//	status      status set, transitions, command maps
//	store       job/execution persistence adapter
//	admission   pending / moderator-held queues
//	moderator   moderator gate
//	cluster     cluster service contract + websocket node channel
//	events      typed event bus wiring
//	execution   the lifecycle state machine
//	allocator   the scheduling loop
//	bootstrap   startup reconstitution and shutdown drain
//	config      typed startup configuration
//	metrics     execution/queue observability
//	transport   HTTP surface over the public API
//
// Shared utility packages (collections, messaging, chrono, lifecycle, l3,
// errutils, codec, config, rest, turbo, uuid, clients, vfs, cli, fnutils,
// fsutils, ioutils, textutils, managers, secrets, semver, pool, assertion)
// are the ambient toolkit the core packages above are built from.
package execctl
