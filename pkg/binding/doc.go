/*
Package binding implements the task-distribution policies a binding round
chooses between.

# Architecture

	┌───────────────────────┐     ┌───────────────────────┐
	│  slot snapshot          │     │  running jobs (graph)  │
	│  []AvailableTaskSlots   │     │  stage → empty parts   │
	└───────────┬─────────────┘     └───────────┬─────────────┘
	            └───────────────┬───────────────┘
	                            ▼
	              Bias | RoundRobin | ConsistentHash
	                            │
	                            ▼
	                  Result{Bound, Blacklist}

# Policies

  - Bias: pack partitions onto the emptiest executor until it is
    exhausted, then move to the next. The cursor only ever advances
    within one call; it never resets mid-round.
  - RoundRobin: rotate one partition at a time across the descending-
    sorted slot list, wrapping past exhausted slots, until total
    remaining capacity reaches zero.
  - ConsistentHash: hash the first scan file of each partition onto a
    consistent-hash ring, first at zero tolerance (marking a DataCache
    hit), then at the configured tolerance for whatever missed. A stage
    that binds nothing across both rounds is blacklisted.

None of the three policies perform I/O. Each fills the task_infos cell of
every partition it binds directly on the stage; pkg/cluster snapshots
inventory, calls one of these, and commits the resulting slot deltas.
*/
package binding
