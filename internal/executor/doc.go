// Package executor runs GraphQL operations against a schema.Schema, handing
// every field to a Runtime.
//
// # Execution model
//
// Execution is breadth-first. Fields marked schema.Field.Async are queued and
// resolved together, one Runtime.BatchResolveAsync call per depth; all other
// fields are resolved in place through Runtime.ResolveSync and do not add
// depth. For an operation whose deepest chain holds d async fields the batch
// hook is called exactly d times.
//
// Each depth goes through the same steps:
//
//	A. Sync expansion
//	   - Arguments are coerced against the field definition (defaults
//	     applied, enum members kept as wire names).
//	   - Sync fields resolve immediately and are completed; object results
//	     expand their selection sets right away.
//	   - Async fields become an AsyncResolveTask carrying the response path.
//
//	B. Batch
//	   - Queued tasks under a nullified path are dropped.
//	   - If the operation context is already done, the remaining tasks fail
//	     with ctx.Err() and the runtime is not called.
//	   - Otherwise BatchResolveAsync receives every task of the depth and must
//	     answer with one result per task, in order.
//
//	C. Completion
//	   - Results are completed the same way as sync values. Async children
//	     discovered here wait for the next batch.
//	   - A Non-Null violation nulls the nearest nullable ancestor, at most
//	     the top level field, and marks its path so that later work beneath
//	     it is skipped.
//
// # Mutations
//
// Mutation root fields run strictly in document order. Each root field is
// expanded and every async batch beneath it is drained before the next root
// field starts, so async mutation fields never share a batch.
//
// # Value completion
//
//   - Lists complete element-wise with index paths.
//   - Scalars and enums go through Runtime.SerializeLeafValue.
//   - Interfaces and unions go through Runtime.ResolveType; the returned name
//     must be an object type of the schema. Fragments whose type condition is
//     an interface or union apply to every object type they cover.
//
// # Errors
//
// Errors from the runtime become located errors at the field path and the
// field is nulled, so one failing field never aborts its siblings. An error
// implementing Extensions() map[string]any keeps those extensions on the
// wire. Only request level problems (unknown operation, bad variables) stop
// execution before any field runs.
//
// # Subscriptions
//
// Executor.Subscribe validates and sets up a subscription through a
// SubscriptionRuntime, then completes every source event against the root
// field's selection set, producing one ExecutionResult per event.
package executor
