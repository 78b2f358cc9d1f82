// Package delete handles batched deletion of objects and object versions.
package delete
