/*
Package recdb implements an in-memory, schemaless record store with
secondary indexing, a composable predicate/query layer, and atomic
multi-statement transactions.

We implement:

1. Records, schemaless key→value maps identified by a stable rid.

2. Indices, one ordered index per attribute that has ever appeared on a
live record, maintained automatically as records are created, updated
and deleted.

3. Predicates and queries, a small algebra (Compare, Member, And, Or,
Not) that compiles into an index plan plus a residual filter, with
ordering, offset and limit.

4. Transactions, a write-buffering overlay over the store committed or
discarded atomically.

# Technical details

**Values.** A Value is one of null, bool, int, float, string, sequence,
set or map. They are totally ordered (see Compare) so that they can be
used as keys in the per-attribute indices.

**Identity.** The store keeps one live View per rid alive via a weak
reference; repeated Get calls for the same rid return the same *View as
long as something else is still holding it.

**Index ordinal.** Indices are created lazily, the first time an
attribute value is seen, and dropped once their last key is removed.

**Overlay.** A Tx never touches the base store's indices directly. It
buffers pending record states keyed by rid and merges them into query
results; committing replays the overlay onto the store under the write
lock.
*/
package recdb
