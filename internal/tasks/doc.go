// Package tasks runs the organizer's long-running work: organize jobs and playlist reconciliation.
//
// # Organize Jobs
//
// [JobEngine.StartJob] registers a job and returns its id at once. A worker goroutine then
// moves the job through its stages:
//
//  1. fetching : pages through the liked songs; total_songs is set from the first page
//  2. analyzing : classifies songs in batches; songs_processed restarts at zero
//  3. creating : plans buckets with [PlanBuckets] and writes one playlist per bucket
//  4. completed or failed
//
// Clients poll [JobEngine.GetStatus], which copies the job under a read lock. A user has at
// most one active job; a second start is rejected with [shared.ErrConflict]. Finished jobs are
// kept for the retention window and evicted by [JobEngine.Sweep] or the janitor.
//
// # Reconciliation
//
// [Reconciler] works on playlists already recorded in the store:
//   - [Reconciler.RefreshOne] : record the live track count and sync time
//   - [Reconciler.RebuildOne] : reclassify the library and replace the playlist's tracks
//   - [Reconciler.SyncAll] : refresh every playlist with a rate-limited worker pool
//   - [Reconciler.SyncStatus] : count liked songs each playlist has not seen yet
//   - [Reconciler.UpdatePlaylist], [Reconciler.DeletePlaylist] : local first, provider best-effort
//
// Writes to a single playlist are serialized per playlist id.
package tasks
