// Package http provides HTTP handlers and middleware for the jio API.
//
// Identity is asserted by the upstream gateway in the X-Jio-User-ID header
// (optionally X-Jio-Display-Name and X-Jio-Email). Requests without it are
// rejected with 401. Operations that need a display name answer 412 with
// error_code DISPLAY_NAME_REQUIRED until PUT /me sets one.
//
// The router exposes the following endpoints:
//   - GET /me, PUT /me: the caller's profile. Body: {"displayName","username","email"}.
//   - POST /groups, GET /groups, GET /groups/{id}, DELETE /groups/{id}: jio
//     groups. Deletion is limited to the creator and removes every record that
//     belongs to the group.
//   - POST /groups/{id}/join, POST /groups/{id}/participants {"username"}:
//     membership.
//   - PUT /groups/{id}/reminder {"reminderFrequencyDays"}, GET /groups/{id}/reminder.
//   - PUT /groups/{id}/availability {"dates":{"2024-05-03":["19:00"]}},
//     GET /groups/{id}/availability, POST /groups/{id}/availability/toggle
//     {"date","slot"}, POST /groups/{id}/availability/range {"date","start","end"}.
//   - GET /groups/{id}/heatmap?week=YYYY-MM-DD: weekly heat-map table.
//   - GET /groups/{id}/heatmap/stream: server-sent heat-map snapshots.
//   - POST /groups/{id}/confirmations, PUT /activities/{id}: confirm and edit
//     activities. Responses carry "warnings" for calendars that could not be
//     written and "conflicts" for participants already booked at that time.
//   - GET /calendar?month=YYYY-MM, GET /calendar.ics, DELETE /calendar/{id}:
//     the caller's personal calendar.
//
// Validation failures answer 422 with per-field messages under "errors".
package http
