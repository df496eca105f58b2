package insights

import (
	"gafi/internal/core"
	"gafi/internal/icons"
)

// MapAlert converts a budget alert into an insight record for the feed.
// Severity decides the record type; everything else carries over, with
// the icon forced through the vocabulary.
func MapAlert(alert Alert) core.InsightRecord {
	recordType := core.RecordInfo
	switch alert.Level {
	case LevelExceeded:
		recordType = core.RecordError
	case LevelCritical:
		recordType = core.RecordWarning
	}
	color := typeColor(recordType)
	if alert.Color != "" && hexColorRe.MatchString(alert.Color) {
		color = alert.Color
	}
	return core.InsightRecord{
		ID:        alert.ID,
		Type:      recordType,
		Title:     alert.Title,
		Message:   alert.Message,
		Icon:      icons.Normalize(alert.Icon),
		Color:     color,
		Actions:   alert.Actions,
		Category:  alert.Category,
		Data:      alert.Data,
		Timestamp: alert.Timestamp,
	}
}

// MapAlerts maps a batch, preserving order.
func MapAlerts(alerts []Alert) []core.InsightRecord {
	records := make([]core.InsightRecord, 0, len(alerts))
	for _, a := range alerts {
		records = append(records, MapAlert(a))
	}
	return records
}
