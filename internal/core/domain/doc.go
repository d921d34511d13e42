// Package domain holds the values that flow between docagent's services
// and adapters: page chunks from ingestion, the records the index stores
// for them, the counters that prove the index consistent, and search hits
// and answers on the way out.
//
// It imports only the standard library.
package domain
