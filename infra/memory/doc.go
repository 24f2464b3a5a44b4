// Package memory provides the typed object pool the order book allocates
// resting orders from. Orders are recycled when they are filled or
// cancelled; nothing outside the writer goroutine ever holds one.
package memory
