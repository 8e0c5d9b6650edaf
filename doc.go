/*
Package kvdoc maps typed records onto a plain key-value store and runs
ad-hoc queries over them.

We implement:

1. Records: any type implementing Model, stored as a single value under
"{collection}:{id}" and encoded as JSON (default) or msgpack.

2. Queries: conjunctions of field filters with optional sorting and
pagination, evaluated client-side over a full collection scan.

3. Migrations: an ordered list of up/down steps whose applied state is kept
in one bookkeeping value, "torm:migrations".

4. Validation of records before they reach the store (see package validate,
and Schema for untyped documents).

# Technical Details

**Store port.**
The only requirements on the underlying store are per-key get, set,
delete and exists, plus key enumeration by glob pattern (see Store). There
are implementations for memory, a JSON snapshot file, Bolt, Redis and SQLite.

**Values.**
Filters and sorting run against Value, a JSON-like tree decoded from the
stored bytes independently of the record's Go type. A document is dropped
from a scan when either decoding fails. Comparison never coerces across
kinds: a number 18 does not equal a string "18".

**Consistency.**
A scan enumerates keys and then fetches them one by one, so results are
read-uncommitted: concurrent writers may be observed partially. The
migration bookkeeping value is rewritten with read-modify-write after each
step, with no locking; concurrent migrators can lose updates.
*/
package kvdoc
