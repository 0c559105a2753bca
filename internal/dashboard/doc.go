// Package dashboard is the terminal view for one monitored connection.
//
// The Model polls a Fetcher on a fixed interval, keeps the latest Snapshot,
// and renders CPU, memory, GPU, and storage cards with sparklines drawn from
// the snapshot's retained history.
//
// # Polling
//
// Each fetch schedules the next one when it completes, so cycles never
// overlap:
//
//  1. fetchCmd calls FetchSnapshot under a timeout
//  2. snapshotMsg arrives with the result
//  3. success schedules tickMsg after the poll interval
//  4. tickMsg starts the next fetch
//
// A manual refresh bumps the tick generation, so the tick that was already
// scheduled is dropped when it fires instead of starting a second loop.
//
// NotFound and ConnectionLost stop the loop: the connection is gone and must
// be re-established. Any other error retries with exponential back-off.
//
// PickerModel is a separate, smaller program that chooses which host to
// watch when none was named.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Refresh now
//	?           - Toggle help
package dashboard
