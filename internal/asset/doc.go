// Package asset implements the playlist asset model and the active-ordering
// subsystem of panel.sh.
//
// # Model
//
// An Asset is one playlist entry: a URI with a mimetype, a scheduling window
// (start_date/end_date), an enabled flag, and a play_order rank. An asset is
// active when it is enabled and the current instant falls inside its window;
// an asset missing either bound can never be active.
//
// # Ordering invariant
//
// The active assets always hold the dense ranks 0..k-1 in their playback
// order. Inactive assets keep whatever rank they last held; those ranks are
// meaningless and are repaired the next time the asset becomes active and a
// mutation runs. The active set is never stored - it is recomputed from
// scratch on every mutation with a single freshly captured instant.
//
// # Components
//
//   - IsActive / Resolve: the time-window evaluator and active-set resolver
//   - insertAt / remove + Repository.UpdateRanks: the ordering reconciler
//   - Coordinator: serializes Create/Update/Delete/SetOrder so the
//     snapshot-to-rank-write window cannot interleave across requests
//   - Repository / SQLiteRepository: persistence over database/sql
//
// The Clock interface makes scheduling decisions testable; production code
// uses SystemClock.
package asset
