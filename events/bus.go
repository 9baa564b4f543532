package events

import (
	"context"
	"fmt"
	"net/url"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"oss.nandlabs.io/execctl/l3"
	"oss.nandlabs.io/execctl/managers"
	"oss.nandlabs.io/execctl/messaging"
	"oss.nandlabs.io/execctl/uuid"
)

var logger = l3.Get()

// coreTopicURL is the single process-wide topic every lifecycle event and
// cluster notification flows through, addressed via the messaging
// package's "chan" (in-memory) scheme.
const coreTopicURL = "chan://events/core"

// defaultAssetResolutionTimeout bounds how long submitJob waits on a
// verify_assets reply before failing AssetResolution.
const defaultAssetResolutionTimeout = 30 * time.Second

// Handler processes one Event. Handlers must not block on the allocator's
// busy flag (spec §4.7) — they may read/write stores and enqueue, nothing
// more.
type Handler func(ctx context.Context, evt Event) error

// Bus subscribes to the core topic and dispatches events either to a
// one-shot correlation-ID waiter (asset resolution replies) or to the
// registered Handler for the event's Kind.
type Bus struct {
	provider messaging.Provider
	topic    *url.URL
	handlers managers.ItemManager[Handler]
	pending  cmap.ConcurrentMap[string, chan Event]
}

// NewBus wires a Bus over provider, which must support the "chan" scheme
// (messaging.LocalProvider in-process, or any Provider registered for it).
func NewBus(provider messaging.Provider) (*Bus, error) {
	topic, err := url.Parse(coreTopicURL)
	if err != nil {
		return nil, err
	}
	if err := provider.Setup(); err != nil {
		return nil, err
	}
	b := &Bus{
		provider: provider,
		topic:    topic,
		handlers: managers.NewItemManager[Handler](),
		pending:  cmap.New[chan Event](),
	}
	if err := provider.AddListener(topic, b.dispatch); err != nil {
		return nil, err
	}
	return b, nil
}

// RegisterHandler installs the handler the Event Router uses for kind. A
// later call for the same kind replaces the earlier one.
func (b *Bus) RegisterHandler(kind Kind, h Handler) {
	b.handlers.Register(string(kind), h)
}

// Publish encodes evt and sends it on the core topic.
func (b *Bus) Publish(evt Event) error {
	msg, err := b.provider.NewMessage(messaging.LocalMsgScheme)
	if err != nil {
		return err
	}
	if err := msg.WriteJSON(evt); err != nil {
		return err
	}
	return b.provider.Send(b.topic, msg)
}

func (b *Bus) dispatch(msg messaging.Message) {
	var evt Event
	if err := msg.ReadJSON(&evt); err != nil {
		logger.WarnF("events: malformed message: %v", err)
		return
	}

	if evt.Kind == assetReply {
		if ch, ok := b.pending.Pop(evt.CorrelationId); ok {
			ch <- evt
		}
		return
	}

	handler := b.handlers.Get(string(evt.Kind))
	if handler == nil {
		return
	}
	if err := handler(context.Background(), evt); err != nil {
		logger.ErrorF("events: handler for %s failed: %v", evt.Kind, err)
	}
}

// ResolveAssets issues a jobs_service:verify_assets request for names and
// blocks for the one-shot reply, keyed by a freshly generated correlation
// ID so concurrent submitJob calls never cross-wire responses (spec §4.7).
func (b *Bus) ResolveAssets(ctx context.Context, names []string) (map[string]string, error) {
	id, err := uuid.V4()
	if err != nil {
		return nil, err
	}
	correlationId := id.String()

	ch := make(chan Event, 1)
	b.pending.Set(correlationId, ch)
	defer b.pending.Remove(correlationId)

	if err := b.Publish(Event{
		Kind:          JobsServiceVerifyAssets,
		Assets:        names,
		CorrelationId: correlationId,
	}); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return nil, fmt.Errorf("events: asset resolution: %s", reply.Error)
		}
		return reply.ResolvedAssets, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(defaultAssetResolutionTimeout):
		return nil, fmt.Errorf("events: asset resolution timed out")
	}
}
