package loadsched

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

// ProgressRecorder is the subset of the progress log a load run needs.
// internal/progress implements it.
type ProgressRecorder interface {
	StepDone(ctx context.Context, stepID string) error
	ChunkDone(ctx context.Context, schema, table string, chunkIndex int) error
}

// DDLExecutor runs one DDL step (CREATE SCHEMA/TABLE/VIEW/ROUTINE/TRIGGER/
// EVENT, or a GRANT/CREATE USER when Kind is UserGrant).
type DDLExecutor func(ctx context.Context, step *Step) error

// ChunkExecutor loads one data chunk via LOAD DATA LOCAL INFILE. Run hands
// over each chunk whole; it does not split chunks with SubChunkBoundaries.
type ChunkExecutor func(ctx context.Context, chunk ChunkRef) error

// DropAccount issues DROP USER for the account a failed GRANT/CREATE USER
// step targeted; used by the drop_account grant error policy.
type DropAccount func(ctx context.Context, step *Step) error

// Run drains plan with up to threads concurrent workers, applying
// grantPolicy to UserGrant step failures and stopping the whole run on any
// other fatal error.
func Run(ctx context.Context, plan *Plan, threads int, grantPolicy options.GrantErrorPolicy, progress ProgressRecorder, ddlExec DDLExecutor, chunkExec ChunkExecutor, dropAccount DropAccount) error {
	if threads < 1 {
		threads = 1
	}
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < threads; i++ {
		g.Go(func() error {
			for {
				if !plan.WaitForWork() {
					return nil
				}

				if step, ok := plan.NextDDL(); ok {
					if err := runStep(ctx, plan, step, grantPolicy, progress, ddlExec, dropAccount); err != nil {
						plan.Abort()
						return err
					}
					continue
				}

				if chunk, ok := plan.NextChunk(); ok {
					if err := chunkExec(ctx, chunk); err != nil {
						plan.Abort()
						return shellerr.Wrap(shellerr.KindOf(err), "loading chunk", err)
					}
					plan.CompleteChunk(chunk)
					if progress != nil {
						if err := progress.ChunkDone(ctx, chunk.Schema, chunk.Table, chunk.ChunkIndex); err != nil {
							plan.Abort()
							return err
						}
					}
				}
			}
		})
	}
	return g.Wait()
}

func runStep(ctx context.Context, plan *Plan, step *Step, grantPolicy options.GrantErrorPolicy, progress ProgressRecorder, ddlExec DDLExecutor, dropAccount DropAccount) error {
	err := ddlExec(ctx, step)
	if err != nil {
		if step.Kind != UserGrant {
			return shellerr.Wrap(shellerr.KindOf(err), "DDL step "+step.ID+" failed", err)
		}
		switch grantPolicy {
		case options.GrantIgnore:
			// fall through to CompleteDDL: treated as done so dependents unblock
		case options.GrantDropAccount:
			if dropAccount != nil {
				if derr := dropAccount(ctx, step); derr != nil {
					return shellerr.Wrap(shellerr.LoadGrantError, "dropping account after grant failure", derr)
				}
			}
		default: // abort
			return shellerr.Wrap(shellerr.LoadGrantError, "grant step "+step.ID+" failed", err)
		}
	}

	plan.CompleteDDL(step)
	if progress != nil {
		if perr := progress.StepDone(ctx, step.ID); perr != nil {
			return perr
		}
	}
	return nil
}

// SubChunkBoundaries splits [0, totalRows) into row ranges no larger than
// needed to keep each LOAD DATA call under maxBytesPerTransaction, given
// avgRowSize bytes/row. Returns a single [0, totalRows) range when
// maxBytesPerTransaction is 0 (unbounded) or avgRowSize is unknown.
func SubChunkBoundaries(totalRows, avgRowSize, maxBytesPerTransaction int64) [][2]int64 {
	if maxBytesPerTransaction <= 0 || avgRowSize <= 0 || totalRows <= 0 {
		return [][2]int64{{0, totalRows}}
	}
	rowsPerSub := maxBytesPerTransaction / avgRowSize
	if rowsPerSub < 1 {
		rowsPerSub = 1
	}
	var bounds [][2]int64
	for start := int64(0); start < totalRows; start += rowsPerSub {
		end := start + rowsPerSub
		if end > totalRows {
			end = totalRows
		}
		bounds = append(bounds, [2]int64{start, end})
	}
	return bounds
}

// WaitDumpArtifacts calls dumpComplete every two seconds until it reports
// true (manifest says dump_complete), returning an error if timeout elapses
// first. It does not list backend or pick up new artifacts while it waits;
// backend is not used.
func WaitDumpArtifacts(ctx context.Context, backend storage.Backend, dumpComplete func(ctx context.Context) (bool, error), timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	deadline := time.Now().Add(timeout)
	const pollInterval = 2 * time.Second
	for {
		done, err := dumpComplete(ctx)
		if err != nil {
			return shellerr.Wrap(shellerr.PersistentIO, "polling dump manifest", err)
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return shellerr.New(shellerr.PreconditionError, "timed out waiting for dump_complete")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
