// Package filestore persists index generations as plain files.
//
// Layout under the index directory:
//
//	CURRENT                      name of the live generation
//	generations/<id>/vectors.idx serialised vector index
//	generations/<id>/docs.json   {"texts": [...], "metadata": [...]}
//	generations/<id>/embeddings.npy
//	generations/<id>/manifest.json
//
// A generation is written into a temporary directory, renamed into place,
// and only then made current by atomically replacing CURRENT. Readers that
// resolve CURRENT therefore always see a complete artifact set.
package filestore
