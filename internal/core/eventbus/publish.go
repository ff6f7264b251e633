package eventbus

func (bus *EventBus) PublishAgentSpawnRequested(p AgentSpawnRequestedPayload) {
	bus.send(EventAgentSpawnRequested, p)
}

func (bus *EventBus) SubscribeAgentSpawnRequested(fn func(AgentSpawnRequestedPayload)) {
	subscribe(bus, EventAgentSpawnRequested, fn)
}

func (bus *EventBus) PublishClaimsChanged(p ClaimsChangedPayload) {
	bus.send(EventClaimsChanged, p)
}

func (bus *EventBus) SubscribeClaimsChanged(fn func(ClaimsChangedPayload)) {
	subscribe(bus, EventClaimsChanged, fn)
}

func (bus *EventBus) PublishClaimsConflict(p ClaimsConflictPayload) {
	bus.send(EventClaimsConflict, p)
}

func (bus *EventBus) SubscribeClaimsConflict(fn func(ClaimsConflictPayload)) {
	subscribe(bus, EventClaimsConflict, fn)
}

func (bus *EventBus) PublishHookExecuted(p HookExecutedPayload) {
	bus.send(EventHookExecuted, p)
}

func (bus *EventBus) SubscribeHookExecuted(fn func(HookExecutedPayload)) {
	subscribe(bus, EventHookExecuted, fn)
}

func (bus *EventBus) PublishHookFailed(p HookFailedPayload) {
	bus.send(EventHookFailed, p)
}

func (bus *EventBus) SubscribeHookFailed(fn func(HookFailedPayload)) {
	subscribe(bus, EventHookFailed, fn)
}

func (bus *EventBus) PublishHooksReloaded(p HooksReloadedPayload) {
	bus.send(EventHooksReloaded, p)
}

func (bus *EventBus) SubscribeHooksReloaded(fn func(HooksReloadedPayload)) {
	subscribe(bus, EventHooksReloaded, fn)
}

func (bus *EventBus) PublishMemoryUpdateRequested(p MemoryUpdateRequestedPayload) {
	bus.send(EventMemoryUpdateRequested, p)
}

func (bus *EventBus) SubscribeMemoryUpdateRequested(fn func(MemoryUpdateRequestedPayload)) {
	subscribe(bus, EventMemoryUpdateRequested, fn)
}

func (bus *EventBus) PublishMessageArrived(p MessageArrivedPayload) {
	bus.send(EventMessageArrived, p)
}

func (bus *EventBus) SubscribeMessageArrived(fn func(MessageArrivedPayload)) {
	subscribe(bus, EventMessageArrived, fn)
}

func (bus *EventBus) PublishMessageReceived(p MessageReceivedPayload) {
	bus.send(EventMessageReceived, p)
}

func (bus *EventBus) SubscribeMessageReceived(fn func(MessageReceivedPayload)) {
	subscribe(bus, EventMessageReceived, fn)
}

func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) {
	subscribe(bus, EventNotificationPublished, fn)
}

func (bus *EventBus) PublishTodoAdded(p TodoAddedPayload) {
	bus.send(EventTodoAdded, p)
}

func (bus *EventBus) SubscribeTodoAdded(fn func(TodoAddedPayload)) {
	subscribe(bus, EventTodoAdded, fn)
}

func (bus *EventBus) PublishTodoRemoved(p TodoRemovedPayload) {
	bus.send(EventTodoRemoved, p)
}

func (bus *EventBus) SubscribeTodoRemoved(fn func(TodoRemovedPayload)) {
	subscribe(bus, EventTodoRemoved, fn)
}

func (bus *EventBus) PublishTodoUpdated(p TodoUpdatedPayload) {
	bus.send(EventTodoUpdated, p)
}

func (bus *EventBus) SubscribeTodoUpdated(fn func(TodoUpdatedPayload)) {
	subscribe(bus, EventTodoUpdated, fn)
}

func (bus *EventBus) PublishWorkItemChanged(p WorkItemChangedPayload) {
	bus.send(EventWorkItemChanged, p)
}

func (bus *EventBus) SubscribeWorkItemChanged(fn func(WorkItemChangedPayload)) {
	subscribe(bus, EventWorkItemChanged, fn)
}
