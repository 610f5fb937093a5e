// Package txscope binds one database transaction to one inbound request.
//
// A Layer installs a fresh Slot in every request context. Handlers (or the
// repositories they call) obtain the transaction with From, which begins it
// on first use and hands the same handle to every later caller. Once the
// response is known the Layer commits on a successful status and rolls back
// otherwise. Streamed responses are finalized only after the body completes.
// A request that never extracts a transaction makes no database calls.
package txscope
