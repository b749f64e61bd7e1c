// Package events decodes the records a chain appends to its event
// storage entry during block execution.
//
// The raw storage value is a length-prefixed run of records, each
// holding an execution phase, the runtime's two-level event enum
// (pallet, then the pallet's own event variant), and a list of topic
// hashes. A Reader resolves the event enum from metadata once and
// turns raw bytes into Event values:
//
//	r, err := events.NewReader(meta)
//	if err != nil {
//		return err
//	}
//	evs, err := r.Read(raw)
//	for _, ev := range evs {
//		fmt.Println(ev.Phase, ev.FullName())
//	}
//
// Event fields stay generic value trees, so callers can walk any
// pallet's events without chain-specific types.
package events
