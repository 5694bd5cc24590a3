/*
Package weavetest provides test doubles for the framework interfaces:
transactions, messages, handlers, decorators, authenticators and keys.
*/
package weavetest
