// Package voiceprint implements fixed-dimension speaker voice prints:
// the binary codec used to persist them, the vector math used to score
// them, and the [Extractor] contract that turns raw audio into
// embedding vectors.
//
// # Voice Prints
//
// A voice print is a dense float32 vector of fixed dimension (192 by
// default) produced by a speaker verification model and L2-normalized
// to unit length before storage. Because stored prints are unit
// vectors, cosine similarity against a stored print reduces to a dot
// product.
//
// # Persistence Format
//
// A print is persisted as 4*dim bytes of little-endian IEEE-754
// float32 values in vector order. [Unmarshal] rejects a blob of any
// other length: a wrong-sized blob means a model or version mismatch
// and is never silently truncated or padded.
//
// # Extractors
//
// [Extractor] is the single boundary to the embedding model. Three
// implementations ship with this package: [Remote], a WebSocket client
// for a speaker-embedding inference service; [Static], a deterministic
// double for tests and simulation; and [Unavailable], the null variant
// used when no backend is configured. Callers select one at
// construction time and inject it into whatever consumes embeddings.
package voiceprint
