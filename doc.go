// Package reckon reconciles multi-account bank statements and computes
// capital gains outcomes for a trading ledger.
//
// The core functionalities include:
//   - Normalization: converting heterogeneous statement and trade rows into
//     canonical Transaction and Trade records, driven by a Format descriptor.
//   - Reconciliation: matching debits and credits across accounts to find
//     internal transfers, with doubtful candidates left for confirmation.
//   - Lot tracking: per-asset inventories of open lots consumed by disposals
//     under a pluggable lot ordering (FIFO by default).
//   - Capital gains: folding disposals into tax year summaries under a
//     RuleSet (discount, same-year offset, losses carried forward).
//
// Every computation is a pure function of its inputs: there is no global
// state, no persistence, and all amounts use fixed-point decimals. Rounding
// only happens when values are reported.
//
// This package serves as the foundational logic for the `rk` command-line
// tool.
package reckon
