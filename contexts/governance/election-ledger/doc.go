// Package electionledger implements the election ledger inside the
// governance context.
//
// The module owns time-bounded elections, candidate registration and
// one-ballot-per-caller voting. Each election is kept in three views (the
// registry record, the candidate ledger and the voter ledger) that every
// mutation rewrites together through a staged unit of work. Change events
// leave through an outbox relayed by workers.
package electionledger
