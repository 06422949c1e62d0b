// Package session manages the client-side session lifecycle for the
// GiraffeSpace web front-end: hydrating login state from durable storage,
// talking to the external authentication API, proactively expiring stale
// tokens, and gating navigation through the route guard middleware.
//
// Session lifecycle:
//   - Manager is the single source of truth for login state. It hydrates from
//     a TokenStore on Start, exposes Login/Logout/UpdateUser, and moves
//     through the session state machine (unknown, logged out, logged in,
//     expired) so illegal transitions surface early.
//   - Monitor runs the expiry checks: once when a logged-in state is
//     detected and then on a periodic ticker. A token past its exp claim, or
//     older than the rolling maximum session age, forces a logout with a
//     cause the host application can surface to the user.
//
// Claim decoding:
//   - DecodeClaims is the one decoder for token claims. Both the Monitor and
//     the route guard middleware use it, so a token is judged the same way
//     in the tab and at the edge. Tokens are opaque bearer credentials issued
//     by the external authentication service; signatures are never verified
//     here, only the exp and iat claims are consumed, and anything
//     undecodable is treated as expired.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the Manager and
//     the state machine to describe login, logout, and expiry events. Sinks
//     run best-effort (errors are logged) so you can forward to a database
//     or queue without blocking session operations.
package session
