// Package ring hashes partition keys onto executors using virtual-point
// consistent hashing with bounded tolerance: a lookup inspects the primary
// node and up to `tolerance` clockwise fallbacks before giving up.
package ring
