// Package api serves the monitoring core over HTTP.
//
// Routes:
//
//	POST /api/connect                          open a session, returns connectionId
//	POST /api/disconnect/:connectionId         close a session
//	POST /api/disconnect                       same, id in the JSON body
//	GET  /api/monitoring-data/:connectionId    one snapshot
//	GET  /api/stream/:connectionId             websocket, one frame per poll interval
//	GET  /api/connections                      ids of live sessions
//	GET  /api/health                           liveness
//
// Every JSON body is {"success": true, ...} or
// {"success": false, "error": "...", "code": "..."}.
package api
