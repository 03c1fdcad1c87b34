// Package queue implements the broker adapters between the ingestion
// boundary and the processor worker. See adapter.go for the shared Adapter
// contract and memory.go/http.go/nats.go for the three backends selected by
// QUEUE_TYPE.
package queue
