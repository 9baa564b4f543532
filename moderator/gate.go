// Package moderator implements the Moderator Gate (C4): before an execution
// is admitted, check whether its declared external dependencies are
// currently below the cluster's throttle limits.
package moderator

import (
	"context"
	"sync/atomic"

	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/model"
)

// StateStoreConnectionType is the type tag the gate always injects under
// "elasticsearch" — the process-wide backing store connection configured
// once at startup, per spec §4.4.1 ("this guarantees every job is gated on
// the availability of the controller's own backing store").
const StateStoreConnectionType = "elasticsearch"

// Gate consults a cluster.Service to decide admission for an execution's
// declared moderator dependencies. stateStoreConnName is held in an
// atomic.Value rather than a plain string since config.Watcher can update it
// from a file-change goroutine while Check runs concurrently on the event
// router.
type Gate struct {
	cluster            cluster.Service
	stateStoreConnName atomic.Value
}

// New returns a Gate that always folds stateStoreConnName into the
// "elasticsearch" connection list before checking.
func New(clusterService cluster.Service, stateStoreConnName string) *Gate {
	g := &Gate{cluster: clusterService}
	g.SetStateStoreConnectionName(stateStoreConnName)
	return g
}

// SetStateStoreConnectionName updates the connection name injected into
// every gate check. Safe to call concurrently with Check.
func (g *Gate) SetStateStoreConnectionName(name string) {
	g.stateStoreConnName.Store(name)
}

// StateStoreConnectionName returns the connection name currently in effect.
func (g *Gate) StateStoreConnectionName() string {
	name, _ := g.stateStoreConnName.Load().(string)
	return name
}

// Check runs the four-step gate from spec §4.4:
//  1. Always inject the state-store connection under "elasticsearch".
//  2. If the resulting connection list is otherwise empty, skip the cluster
//     call and pass — but the state-store connection makes that case
//     unreachable by construction, since injection happens first and is
//     never itself empty.
//  3. Ask the cluster service to check every declared connection.
//  4. Pass iff every entry reports canRun == true.
//
// Declaring NO moderator dependencies at all (conns == nil) is the one case
// spec §4.4.4 says skips the cluster call entirely; everything else always
// goes through the state-store check.
func (g *Gate) Check(ctx context.Context, conns model.ConnectionList) (bool, error) {
	if len(conns) == 0 {
		return true, nil
	}

	withStateStore := cloneWithStateStore(conns, g.StateStoreConnectionName())

	results, err := g.cluster.CheckModerator(ctx, withStateStore)
	if err != nil {
		return false, err
	}
	for _, r := range results {
		if !r.CanRun {
			return false, nil
		}
	}
	return true, nil
}

func cloneWithStateStore(conns model.ConnectionList, stateStoreConnName string) model.ConnectionList {
	out := make(model.ConnectionList, len(conns)+1)
	for k, v := range conns {
		out[k] = append([]string(nil), v...)
	}
	existing := out[StateStoreConnectionType]
	for _, name := range existing {
		if name == stateStoreConnName {
			return out
		}
	}
	out[StateStoreConnectionType] = append(existing, stateStoreConnName)
	return out
}
