// Package registry implements a constituency voter registry backend.
//
// Accounts:
//   - Users sign up as standard users or admins. Standard users start pending
//     and can not log in until an admin accepts them. Admins are accepted on
//     signup and logged in right away.
//   - UserStateMachine owns the status graph: pending may become accepted or
//     refused, accepted may become refused, refused is terminal. Hooks run
//     before and after the status is persisted.
//   - Accepting a user creates its data namespace, user_<username>_collection.
//     Refusing a user drops its live sessions. Namespaces are never removed.
//
// Sessions:
//   - Login opens a server side session whose token travels in an HTTP only
//     cookie. Gate.Authorize resolves the token into an Identity and checks
//     the required roles.
//
// Activity sinks:
//   - ActivitySink receives signup, login, status and namespace events. Sinks
//     run best effort, errors are logged and never fail the operation.
//
// Server wires the repositories, the services and the fiber routes. Voters
// are plain records with no link to accounts.
package registry
