/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
Each bucket contains only one type of Model, which must
be able to validate and serialize itself.

All data in a bucket is stored under name + ":" + key. The
key is either chosen by the caller or taken from a Sequence.

Secondary indexes are maintained on every Put and Delete. A
unique index refuses a second model with the same index value,
a multi index keeps a reference per model and can be queried
with ByIndex.
*/
package orm
