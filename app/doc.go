/*
Package app contains the pieces used to assemble handlers into an
application: decorator chains, the message router and the ticker chain
run at the beginning of every block.
*/
package app
