package analytics

import (
	"time"

	"admesh-export/internal/model"
)

// buildQuery returns the parameterized aggregation query for a data type.
// The date range is inclusive on both ends; the SQL uses a half-open window
// [start, end+1d) so index-friendly timestamp comparisons stay exact.
//
// Aggregates are cast in SQL (toInt64/toFloat64/toBool) so scan targets are
// predictable regardless of ClickHouse's native count/sum widths.
func buildQuery(dataType model.DataType, publisherID string, startDate, endDate time.Time, maxRawRows int) (string, []any) {
	start := startDate
	endExclusive := endDate.Add(24 * time.Hour)
	args := []any{publisherID, start, endExclusive}

	switch dataType {
	case model.DataTypeImpressions:
		return `
			SELECT
				toString(toDate(timestamp)) AS date,
				app_id,
				adapter_id,
				country,
				toInt64(count(*)) AS impressions,
				toFloat64(avg(latency_ms)) AS avg_latency_ms,
				toFloat64(countIf(success = 1) / count(*)) AS fill_rate
			FROM impressions
			WHERE publisher_id = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY date, app_id, adapter_id, country
			ORDER BY date, app_id, adapter_id, country`, args

	case model.DataTypeRevenue:
		return `
			SELECT
				toString(toDate(timestamp)) AS date,
				app_id,
				adapter_id,
				toFloat64(sumIf(revenue, success = 1)) AS revenue,
				toInt64(countIf(success = 1)) AS impressions,
				toFloat64(if(countIf(success = 1) > 0,
					sumIf(revenue, success = 1) / countIf(success = 1) * 1000, 0)) AS ecpm
			FROM impressions
			WHERE publisher_id = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY date, app_id, adapter_id
			ORDER BY date, app_id, adapter_id`, args

	case model.DataTypeFraudEvents:
		return `
			SELECT
				toString(toDate(timestamp)) AS date,
				fraud_type,
				risk_level,
				toInt64(count(*)) AS events,
				toFloat64(sum(blocked_revenue)) AS blocked_revenue
			FROM fraud_events
			WHERE publisher_id = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY date, fraud_type, risk_level
			ORDER BY date, fraud_type, risk_level`, args

	case model.DataTypeTelemetry:
		return `
			SELECT
				toString(toDate(timestamp)) AS date,
				app_id,
				sdk_version,
				toInt64(sum(sessions)) AS sessions,
				toInt64(sum(crashes)) AS crashes,
				toInt64(sum(anrs)) AS anrs
			FROM sdk_telemetry
			WHERE publisher_id = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY date, app_id, sdk_version
			ORDER BY date, app_id, sdk_version`, args

	case model.DataTypeAll:
		// Raw dump is capped; a full-range dump of a large tenant would
		// otherwise dominate the cluster.
		return `
			SELECT
				event_id,
				publisher_id,
				app_id,
				adapter_id,
				ad_format,
				country,
				toFloat64(revenue) AS revenue,
				toInt64(latency_ms) AS latency_ms,
				toBool(success) AS success,
				timestamp
			FROM impressions
			WHERE publisher_id = ? AND timestamp >= ? AND timestamp < ?
			ORDER BY timestamp
			LIMIT ?`, append(args, maxRawRows)
	}

	return "", nil
}
