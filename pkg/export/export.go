// Package export serializes dispatch audit records for operator tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/platewire/platewire/core/dispatch/logging"
)

// WriteJSON writes the audit records to w in JSON format.
func WriteJSON(w io.Writer, records []logging.Record) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes the audit records to w in CSV format. Per-target outcomes
// are flattened into "printer" or "printer:failed" tokens separated by
// spaces.
func WriteCSV(w io.Writer, records []logging.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "order_id", "order_no", "actor", "items_sent", "success", "targets", "message"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			r.OrderID,
			r.OrderNo,
			r.Actor,
			strconv.Itoa(r.ItemsSent),
			strconv.FormatBool(r.Success),
			flattenTargets(r.PerTarget),
			r.Message,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flattenTargets(perTarget map[string]bool) string {
	parts := make([]string, 0, len(perTarget))
	for id, ok := range perTarget {
		if ok {
			parts = append(parts, id)
		} else {
			parts = append(parts, id+":failed")
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
