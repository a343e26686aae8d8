// Package pcm converts captured float samples to 16-bit linear PCM and
// accumulates the converted blocks of one listening session.
package pcm
