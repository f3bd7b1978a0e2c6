// Package http provides HTTP handlers and middleware for the maintenance
// scheduler API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a session token. Body: {"username","password"}.
//     Response: {"token","expires_at","username","role"} with the token also
//     surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - POST /logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content.
//   - POST /change_password: rotates the authenticated user's password.
//     Body: {"old_password","new_password"}.
//   - POST /user, GET/PUT/DELETE /user/{username}, GET /users: administrator
//     controlled user management exchanging the `userDTO` payload defined in
//     user_handler.go. Listings are paginated via `page`/`page_size`.
//   - POST /activity, GET/PUT/DELETE /activity/{id}, GET /activities: work
//     order management exchanging the `activityDTO` payload defined in
//     activity_handler.go. Listings accept `week`, `week_day`, `maintainer`,
//     and pagination query parameters; maintainers only see their own
//     assignments.
//   - POST /activity/{id}/assign: places the activity on a maintainer's
//     calendar after availability and conflict checks. DELETE on the same
//     path clears the assignment.
//   - GET/POST /maintainer/{username}/availability and
//     DELETE /maintainer/{username}/availability/{id}: weekly availability
//     declarations for one maintainer.
//   - GET /maintainer/{activity_id}/availabilities: proposes assignable
//     slots for an activity across all maintainers.
//   - GET /maintainer/{username}/workload?week=N: per-weekday estimated
//     minutes assigned in the given week.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
