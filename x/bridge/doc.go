/*
Package bridge moves non-fungible items between chains.

A collection is either native, minted on this chain, or a derivative that
represents a collection of another chain. Derivative collections are
registered automatically when the first item arrives, or explicitly by the
configuration owner.

Sending an item locks it and opens a ticket. The destination executes the
transfer program and answers with an acknowledgment, which closes the
ticket. A native item sent in reserve mode stays locked until it comes back;
a teleported native item and a derivative that went home are stashed. A
ticket that was not acknowledged before it expired can be reversed, giving
the item back to its previous owner.

Every item carries a sequence, the nonce of its last transfer. Programs with
a nonce that is not greater than the sequence are ignored, so a message
delivered twice is applied once.
*/
package bridge
