package ranges

import "github.com/dot5enko/virtual-grid/schema"

// Runs collects maximal contiguous runs of slots in state want.
// states[i] describes slot offset+i.
func Runs(states []schema.SlotState, offset int, want schema.SlotState) []schema.FetchRange {

	result := []schema.FetchRange{}
	start := -1

	for i, st := range states {
		if st == want {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			result = append(result, schema.FetchRange{Skip: offset + start, Take: i - start})
			start = -1
		}
	}

	if start >= 0 {
		result = append(result, schema.FetchRange{Skip: offset + start, Take: len(states) - start})
	}

	return result
}

// Coalesce turns runs of unloaded slots into fetch batches of at least
// minBatch slots where possible:
//   - neighbouring runs separated by fewer than minBatch slots are merged,
//     unless the gap holds a Pending slot (ranges of one query never overlap);
//   - short runs grow forward, then backward, through Unloaded slots only.
//
// runs must be sorted and non-overlapping. stateAt reports slot state for any
// index in [0, total).
func Coalesce(runs []schema.FetchRange, minBatch, total int, stateAt func(int) schema.SlotState) []schema.FetchRange {

	if len(runs) == 0 {
		return nil
	}

	merged := make([]schema.FetchRange, 0, len(runs))
	merged = append(merged, runs[0])

	for _, next := range runs[1:] {
		last := &merged[len(merged)-1]
		gap := next.Skip - last.End()

		if gap < minBatch && !hasState(last.End(), next.Skip, schema.Pending, stateAt) {
			last.Take = next.End() - last.Skip
		} else {
			merged = append(merged, next)
		}
	}

	result := make([]schema.FetchRange, 0, len(merged))

	for idx, cur := range merged {

		lowLimit := 0
		if len(result) > 0 {
			lowLimit = result[len(result)-1].End()
		}

		highLimit := total
		if idx+1 < len(merged) {
			highLimit = merged[idx+1].Skip
		}

		for cur.Take < minBatch && cur.End() < highLimit && stateAt(cur.End()) == schema.Unloaded {
			cur.Take++
		}

		for cur.Take < minBatch && cur.Skip > lowLimit && stateAt(cur.Skip-1) == schema.Unloaded {
			cur.Skip--
			cur.Take++
		}

		result = append(result, cur.Clamp(total))
	}

	return result
}

func hasState(from, to int, st schema.SlotState, stateAt func(int) schema.SlotState) bool {
	for i := from; i < to; i++ {
		if stateAt(i) == st {
			return true
		}
	}
	return false
}
