// Package audio provides audio ingest utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - wav: WAV file decoding, encoding, and conversion to the 16 kHz
//     mono float PCM that speaker embedding models expect
package audio
