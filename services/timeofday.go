package services

import "listen-history/models"

// ClassifyHour maps an hour of day (0-23) to its part of the day:
// Morning 6-11, Afternoon 12-17, Evening 18-22, Night 23 and 0-5.
// Range checking is left to the caller.
func ClassifyHour(hour int) models.TimeOfDay {
	switch {
	case hour >= 6 && hour <= 11:
		return models.Morning
	case hour >= 12 && hour <= 17:
		return models.Afternoon
	case hour >= 18 && hour <= 22:
		return models.Evening
	default:
		return models.Night
	}
}
