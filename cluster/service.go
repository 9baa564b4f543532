// Package cluster defines the contract the core consumes from the cluster
// service (out of scope per spec §1, captured here only as an interface)
// and a concrete websocket-backed adapter that talks to cluster nodes over
// a coordinator connection.
package cluster

import (
	"context"

	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/status"
)

// Node identifies one cluster node; Slicer is true for the node currently
// running the execution's slicer process.
type Node struct {
	Id     string
	Slicer bool
}

// ModeratorResult is one entry of checkModerator's response, one per
// requested connection.
type ModeratorResult struct {
	Connection string
	CanRun     bool
	Reason     string
}

// Service is the cluster service contract from spec §6. The core treats it
// as opaque: it does not know or care how allocation, node discovery, or
// moderation checks are actually implemented.
type Service interface {
	// AvailableWorkers returns the number of worker slots free right now.
	AvailableWorkers(ctx context.Context) (int, error)
	// AllocateSlicer requests a slicer process for ex. recover indicates
	// restartExecution set _recover_execution on the record.
	AllocateSlicer(ctx context.Context, ex *model.Execution, recover bool) error
	// AllocateWorkers requests count worker processes for ex.
	AllocateWorkers(ctx context.Context, ex *model.Execution, count int) error
	// FindNodesForJob returns the nodes currently running ex. slicerOnly
	// restricts the result to the slicer node.
	FindNodesForJob(ctx context.Context, exId string, slicerOnly bool) ([]Node, error)
	// NotifyNode sends msg to a single node. WSService writes it to the
	// node's connection and does not wait for a reply.
	NotifyNode(ctx context.Context, nodeId string, msg status.ClusterMessage) error
	// CheckModerator asks whether each connection in conns is currently
	// below its throttle limit.
	CheckModerator(ctx context.Context, conns model.ConnectionList) ([]ModeratorResult, error)
}
