package discord

type SystemEventType string

const (
	// SystemEventConfigReloaded follows a manual reload of the settings file.
	SystemEventConfigReloaded SystemEventType = "config_reloaded"
	// SystemEventCommandMapReset follows a resize of the command map.
	SystemEventCommandMapReset SystemEventType = "command_map_reset"
)

type SystemEvent struct {
	Type   SystemEventType
	Source string
}

// EventBus carries system events from commands to the bot.
type EventBus struct {
	ch chan SystemEvent
}

func NewEventBus() *EventBus {
	return &EventBus{ch: make(chan SystemEvent, 16)}
}

// Publish queues evt, dropping it when the bus is full.
func (b *EventBus) Publish(evt SystemEvent) bool {
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

func (b *EventBus) Events() <-chan SystemEvent {
	return b.ch
}
