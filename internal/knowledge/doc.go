// Package knowledge implements the document model of the retrieval pipeline:
// chunking, embedding, and an in-memory append-only vector index searched by
// cosine similarity.
//
// Data flows through the package in build order:
//
//	[]Document -> Chunker.Split -> []Chunk -> Index.Add (embed + append)
//
// and at query time:
//
//	question -> Index.Search -> []Result (chunks with scores)
//
// Documents are immutable once created. The index never updates or deletes
// entries; ids increase monotonically for the lifetime of the process.
package knowledge
