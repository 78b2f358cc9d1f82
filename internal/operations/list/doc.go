// Package list handles paginated listing of current objects and of object
// versions. Pages are fetched lazily so callers can act on each page before
// requesting the next one.
package list
