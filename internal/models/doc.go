// Package models defines the core domain models for Smart Ledger.
//
// # Models
//
//   - Person: a registered account, identified everywhere by the opaque id Sub
//   - Group: a set of people sharing expenses, carrying the running ledger
//     and pairwise balance matrix
//   - Transaction: a single purchase with payments (WhoPaid), itemized usage,
//     and the deltas it contributed to the group state
//   - Item: a deduplicated, reference-counted catalog entry for a priced line item
//
// # Design Principles
//
//  1. **Opaque person ids**: people are referenced by Sub strings; models never
//     hold pointers to each other, only ids
//  2. **Reversible aggregates**: a transaction stores the exact deltas it applied
//     to its group, so deleting it can subtract them back out
//  3. **Write-once monetary state**: Group.Ledger and Group.Balances are only
//     mutated through the ledger package's apply/revert protocol
package models
