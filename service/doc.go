// Package service is the write entry point of the matching core.
//
// Every command is validated here and then enqueued for the engine; the
// service never touches the order book. Reads come from the engine's
// published snapshot. Transports (gRPC, HTTP, the Kafka feed) call into
// this package instead of the queue.
package service
