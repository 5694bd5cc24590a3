/*
Package xcm contains the subset of the cross-consensus messaging primitives
used by the bridge: chain relative locations, non fungible asset
identifiers, a small instruction set, its binary encoding and the transport
contract used to hand encoded programs to another chain.

A Location is always relative to some chain. The same asset seen from two
different chains has two different locations. Use Absolute, Relative and
Reanchor to move a location between perspectives. The text form of a
location is a slash separated list of junctions prefixed with one ".." per
parent hop, for example

  ../parachain(2000)/pallet(52)/index(1)

A location with no parents and no junctions is written as ".".
*/
package xcm
