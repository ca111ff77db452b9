// ===== internal/logs/filter.go =====
package logs

import (
	"strings"

	"dhcpwatch/pkg/models"
)

// Filter returns the records whose packet type (ignoring case), source IP,
// destination IP or Option 50 contains query. Order is preserved.
func Filter(records []models.LogRecord, query string) []models.LogRecord {
	result := make([]models.LogRecord, 0, len(records))
	if query == "" {
		return append(result, records...)
	}

	lowered := strings.ToLower(query)
	for _, record := range records {
		if matches(record, query, lowered) {
			result = append(result, record)
		}
	}

	return result
}

func matches(record models.LogRecord, query, lowered string) bool {
	switch {
	case strings.Contains(strings.ToLower(string(record.PacketType)), lowered):
		return true
	case strings.Contains(record.SourceIP, query):
		return true
	case strings.Contains(record.DestinationIP, query):
		return true
	case record.HasOption50() && strings.Contains(record.Option50, query):
		return true
	}
	return false
}

// Option50Records returns the records that carried a Requested IP Address
func Option50Records(records []models.LogRecord) []models.LogRecord {
	result := make([]models.LogRecord, 0)
	for _, record := range records {
		if record.HasOption50() {
			result = append(result, record)
		}
	}
	return result
}

// Statistics counts records, those carrying Option 50, and each packet type
func Statistics(records []models.LogRecord) models.Statistics {
	stats := models.Statistics{
		Total:  len(records),
		ByType: make(map[models.PacketType]int, len(models.PacketTypes)),
	}
	for _, t := range models.PacketTypes {
		stats.ByType[t] = 0
	}

	for _, record := range records {
		if record.HasOption50() {
			stats.WithOption50++
		}
		stats.ByType[normalizeType(record.PacketType)]++
	}

	stats.Percentage = Percentage(stats.WithOption50, stats.Total)
	return stats
}

// Percentage returns part/total*100 rounded half up, zero when total is zero
func Percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return (part*200 + total) / (2 * total)
}

func normalizeType(t models.PacketType) models.PacketType {
	upper := models.PacketType(strings.ToUpper(string(t)))
	for _, known := range models.PacketTypes {
		if upper == known {
			return known
		}
	}
	return models.PacketUnknown
}
