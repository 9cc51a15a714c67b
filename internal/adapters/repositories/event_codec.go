package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"warehouse-allocation-service/internal/domain"
)

func encodePayload(ev domain.Event) (string, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return string(raw), nil
}

func decodePayload(seq int64, payload string) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return domain.Event{}, fmt.Errorf("decode event seq=%d: %w", seq, err)
	}
	ev.Seq = seq
	return ev, nil
}

func nullableTrackingID(ev domain.Event) sql.NullString {
	return sql.NullString{String: ev.TrackingID, Valid: ev.TrackingID != ""}
}

func nullableBinID(ev domain.Event) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(ev.BinID), Valid: ev.BinID != 0}
}
