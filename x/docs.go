/*
Package x contains the extension points shared by all extensions.

Extensions implement common functionality (Handler, Decorator,
Ticker) and are combined together to construct an application.
The cross-chain bridge lives in x/bridge, generic middleware in
x/utils.
*/
package x
