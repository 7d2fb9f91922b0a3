package loadsched

import "context"

// ResumeState is what a replayed progress log tells the scheduler about a
// prior, interrupted run.
type ResumeState struct {
	CompletedSteps    []string
	InProgressChunks  []ChunkRef // chunks that started loading but never recorded ChunkDone
}

// TruncateTable issues a TRUNCATE (or DELETE, for a partial chunk range) on
// a table with an incomplete, non-unique-keyed chunk before it is reloaded,
// since such a table cannot be resumed at the row level.
type TruncateTable func(ctx context.Context, schema, table string) error

// ApplyResume marks state's completed steps done on plan (so Seed treats
// their dependents as ready) and, for every in-progress-incomplete chunk
// belonging to a table without a unique key, truncates the table via
// truncate before the chunk is re-offered — chunked tables with a unique
// key are left alone and simply reload the same chunk idempotently via its
// range predicate.
func ApplyResume(ctx context.Context, plan *Plan, state ResumeState, hasUniqueKey map[string]bool, truncate TruncateTable) error {
	for _, id := range state.CompletedSteps {
		plan.MarkCompleted(id)
	}

	truncated := make(map[string]bool)
	for _, c := range state.InProgressChunks {
		key := c.Schema + "." + c.Table
		if hasUniqueKey[key] || truncated[key] {
			continue
		}
		if err := truncate(ctx, c.Schema, c.Table); err != nil {
			return err
		}
		truncated[key] = true
	}
	return nil
}
