/*
Package utils contains the decorators every application stack is built
from: panic recovery, logging, action tagging and savepoints.
*/
package utils
