package prometheus

import (
	"github.com/Eladkrauz/BodyTrackClient/events"
)

// MetricsListener records session events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with a Bus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records the relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	switch event.Type {
	case events.EventStageChanged:
		if data, ok := event.Data.(events.StageChangedData); ok {
			RecordStageTransition(data.To.String())
		}
	case events.EventNetworkStalled:
		// Stalls are recorded at the dispatch engine; nothing extra here.
	case events.EventSessionEnded:
		if data, ok := event.Data.(events.SessionEndedData); ok {
			RecordSessionEnd(data.Outcome.String(), data.Duration.Seconds())
		}
	default:
		// Events without metrics are ignored.
	}
}
