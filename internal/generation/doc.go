// Package generation defines the boundary between the application core and
// the remote MiniMax generation services. It declares the Generator
// interface for image and speech synthesis together with the error taxonomy
// the rest of the system keys off, without coupling callers to the HTTP
// client in internal/platform/minimax.
package generation
