package scheduler

import (
	"context"
	"fmt"
	"time"

	"cleanbroker/internal/events"
	"cleanbroker/platform/logger"
)

// reminderLead is how long before the booking the reminder fires.
const reminderLead = 24 * time.Hour

// ReminderScheduler is the narrow client surface the subscriber needs.
type ReminderScheduler interface {
	ScheduleBookingReminder(ctx context.Context, payload BookingReminderPayload, runAt time.Time) error
}

// SubscribeReminders schedules a booking reminder whenever a quote is
// scheduled. Bookings inside the lead window get no reminder.
func SubscribeReminders(bus events.Bus, client ReminderScheduler, log *logger.Logger) {
	bus.Subscribe(events.QuoteScheduled{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.QuoteScheduled)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}

		runAt := e.ScheduledAt.Add(-reminderLead)
		if runAt.Before(time.Now()) {
			return nil
		}

		err := client.ScheduleBookingReminder(ctx, BookingReminderPayload{QuoteID: e.QuoteID.String()}, runAt)
		if err != nil {
			return err
		}
		if log != nil {
			log.Debug("booking reminder scheduled", "quoteId", e.QuoteID.String(), "runAt", runAt)
		}
		return nil
	}))
}
