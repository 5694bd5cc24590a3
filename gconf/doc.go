/*
Package gconf implements a configuration store intended to be used as a
global, in-database configuration.

Every extension keeps a single configuration entity stored under the
"_c:<package>" key. Configuration is loaded from the genesis file with
InitConfig and can later be changed by its owner through the
UpdateConfigurationHandler.

Not being able to get a configuration value is a critical condition for
the application, callers are expected to fail the whole operation.
*/
package gconf
