// Package flat provides an exact, in-memory vector index.
//
// Every search scans all stored vectors and ranks them by squared Euclidean
// distance, so results are exact and deterministic. Corpora for reply bots
// are small enough that a linear scan is faster than building a graph index.
//
// # Serialisation
//
// WriteTo produces a compact binary file:
//
//	magic   [4]byte  "RGVI"
//	version uint32   1
//	dim     uint32
//	count   uint64
//	data    count*dim float32, little-endian, row-major
package flat
