// Package status defines the execution status set, the active/terminal
// classification, and the command maps that drive notify() and cluster
// fan-out. It has no dependencies on the rest of the core so every other
// package can import it without risk of a cycle.
package status

import "errors"

// ErrInvalidStatus is returned when a caller attempts to set a status that is
// not a member of the status set.
var ErrInvalidStatus = errors.New("status: not a member of the status set")

// ErrInvalidCommand is returned by notify() for a command with no entry in
// either the status map or the cluster message map.
var ErrInvalidCommand = errors.New("status: unknown notify command")

// Status is an execution's lifecycle state. IsActive treats exactly the
// seven active constants below as active, everything else as terminal.
type Status string

// Active statuses, in the order the allocator drives an execution through
// them. ActiveStatuses returns them in this order; IsActive does not depend
// on it.
const (
	Pending         Status = "pending"
	Scheduling      Status = "scheduling"
	Initializing    Status = "initializing"
	Running         Status = "running"
	Failing         Status = "failing"
	Paused          Status = "paused"
	ModeratorPaused Status = "moderator_paused"
)

// Terminal statuses.
const (
	Completed  Status = "completed"
	Stopped    Status = "stopped"
	Rejected   Status = "rejected"
	Failed     Status = "failed"
	Terminated Status = "terminated"
)

// activeSet and allSet are derived once so IsActive/IsValid are O(1) map
// lookups rather than a slice scan on every call.
var activeSet = map[Status]bool{
	Pending:         true,
	Scheduling:      true,
	Initializing:    true,
	Running:         true,
	Failing:         true,
	Paused:          true,
	ModeratorPaused: true,
}

var allSet = map[Status]bool{
	Pending: true, Scheduling: true, Initializing: true, Running: true,
	Failing: true, Paused: true, ModeratorPaused: true,
	Completed: true, Stopped: true, Rejected: true, Failed: true, Terminated: true,
}

// IsActive reports whether s is one of the seven active statuses.
func IsActive(s Status) bool {
	return activeSet[s]
}

// activeStatuses is the canonical, ordered list backing ActiveStatuses; kept
// separate from the activeSet map so callers that need to build a query
// disjunction over "all active statuses" get a stable order.
var activeStatuses = []Status{
	Pending, Scheduling, Initializing, Running, Failing, Paused, ModeratorPaused,
}

// ActiveStatuses returns the seven active statuses in the load-bearing order
// declared above.
func ActiveStatuses() []Status {
	return append([]Status(nil), activeStatuses...)
}

// IsValid reports whether s is a member of the status set at all.
func IsValid(s Status) bool {
	return allSet[s]
}

// Command is a notify()-able action requested against a running execution.
type Command string

const (
	CmdStop            Command = "stop"
	CmdPause           Command = "pause"
	CmdResume          Command = "resume"
	CmdModeratorPaused Command = "moderator_paused"
	CmdRestart         Command = "restart"
	CmdTerminated      Command = "terminated"
)

// commandStatus is the command to resulting-status map from spec §4.1. Only
// commands a caller can notify() with appear here; restart/terminated never
// flow through notify() (restart re-enqueues without a status write,
// terminated is shutdown's own direct write) so they are intentionally
// absent.
var commandStatus = map[Command]Status{
	CmdStop:            Stopped,
	CmdPause:           Paused,
	CmdResume:          Running,
	CmdModeratorPaused: ModeratorPaused,
}

// StatusFor returns the status a successful notify(command) transitions an
// execution to. ok is false for a command with no status-map entry.
func StatusFor(cmd Command) (s Status, ok bool) {
	s, ok = commandStatus[cmd]
	return
}

// NodeScope controls which nodes running an execution receive a cluster
// message for a given command.
type NodeScope int

const (
	SlicerOnly NodeScope = iota
	AllNodes
)

// ClusterMessageKind is the opaque message kind sent to a node; the core
// never interprets its payload beyond this tag.
type ClusterMessageKind string

const (
	MsgJobPause   ClusterMessageKind = "cluster:job:pause"
	MsgJobResume  ClusterMessageKind = "cluster:job:resume"
	MsgJobRestart ClusterMessageKind = "cluster:job:restart"
	MsgJobStop    ClusterMessageKind = "cluster:job:stop"
)

// ClusterMessage pairs a message kind with the node scope it must be fanned
// out to.
type ClusterMessage struct {
	Kind  ClusterMessageKind
	Scope NodeScope
}

// commandMessage is the command to cluster-message map from spec §4.1.
var commandMessage = map[Command]ClusterMessage{
	CmdPause:           {MsgJobPause, SlicerOnly},
	CmdResume:          {MsgJobResume, SlicerOnly},
	CmdModeratorPaused: {MsgJobPause, SlicerOnly},
	CmdRestart:         {MsgJobRestart, AllNodes},
	CmdStop:            {MsgJobStop, AllNodes},
	CmdTerminated:      {MsgJobStop, AllNodes},
}

// MessageFor returns the cluster message a command fans out. ok is false for
// a command with no message-map entry.
func MessageFor(cmd Command) (m ClusterMessage, ok bool) {
	m, ok = commandMessage[cmd]
	return
}

// Valid reports whether cmd appears in either map; notify() rejects anything
// else with ErrInvalidCommand.
func (c Command) Valid() bool {
	if _, ok := commandStatus[c]; ok {
		return true
	}
	_, ok := commandMessage[c]
	return ok
}

// Notifiable reports whether cmd carries both a status transition and a
// cluster message, i.e. it can flow through the full notify() pipeline
// (§4.5: derive a message to send, then a status to write). restart and
// terminated have a message but no status entry — they are driven by
// restartExecution and shutdown respectively, never by notify().
func (c Command) Notifiable() bool {
	_, hasStatus := commandStatus[c]
	_, hasMessage := commandMessage[c]
	return hasStatus && hasMessage
}
