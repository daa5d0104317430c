// Package table reconciles server-paginated user data, column search, filters, sorting,
// mutation feedback and authentication-failure recovery into one consistent view state.
//
// The Orchestrator owns fetching and publishing: every refresh mints an epoch and only the
// most recently issued epoch may publish, so out-of-order completions never surface an
// older query. The Table holds the current Query and turns user intents into refreshes.
// The Coordinator runs create/update/delete/lock operations and refetches on success.
// An AuthLatch shared by both suppresses all further calls after an authentication fault.
package table
