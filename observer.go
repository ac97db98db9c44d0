package xevents

import (
	"strconv"

	"github.com/trickstertwo/xlog"
)

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e BusEvent)

func (f ObserverFunc) OnBusEvent(e BusEvent) { f(e) }

// LoggingObserver is an Adapter that reports BusEvents via xlog. It is the
// bus logging sink: registry churn and emissions at info, suspicious but
// harmless conditions at warn, rejected payloads and failed handlers at error.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnBusEvent(e BusEvent) {
	if o.Logger == nil {
		return
	}
	lg := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("event_name", e.EventName),
	)
	if e.SubscriptionID != "" {
		lg = lg.With(xlog.Str("subscription_id", e.SubscriptionID))
	}

	switch e.Type {
	case EventValidationRejected:
		lg.Error().Err(e.Err).Msg("xevents: payload rejected")
	case EventHandlerFailed:
		lg.Error().Err(e.Err).Dur("duration", e.Duration).Msg("xevents: handler failed")
	case EventNoSubscribers:
		lg.Warn().Msg("xevents: no subscribers")
	case EventLeakSuspected:
		lg.Warn().Str("subscribers", strconv.Itoa(e.Subscribers)).Msg("xevents: possible subscription leak")
	case EventDeprecatedName:
		lg.Warn().Str("canonical", e.Canonical).Msg("xevents: deprecated event name")
	case EventEmitted:
		lg.Info().Str("subscribers", strconv.Itoa(e.Subscribers)).Msg("xevents: emitted")
	default:
		lg.Info().
			Str("priority", strconv.Itoa(e.Priority)).
			Str("once", strconv.FormatBool(e.Once)).
			Msg("xevents: " + string(e.Type))
	}
}
