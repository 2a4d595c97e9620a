package notification

import (
	"time"

	"tribe-notify.io/notify/internal/domain"
)

// DigestDeliveryTime returns when a batched notification should land
// for the given cadence. Deterministic given the clock; cadences that
// do not batch return now unchanged.
func (e *Engine) DigestDeliveryTime(frequency domain.Frequency) time.Time {
	return digestDeliveryTime(frequency, e.now().In(e.loc), e.digestHour)
}

func digestDeliveryTime(frequency domain.Frequency, now time.Time, hour int) time.Time {
	switch frequency {
	case domain.FrequencyDailyDigest:
		next := now.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), hour, 0, 0, 0, now.Location())
	case domain.FrequencyWeeklyDigest:
		// Days until the coming Sunday. On Sunday itself this lands a full
		// week out, never "today".
		days := (7 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		next := now.AddDate(0, 0, days)
		return time.Date(next.Year(), next.Month(), next.Day(), hour, 0, 0, 0, now.Location())
	default:
		return now
	}
}
