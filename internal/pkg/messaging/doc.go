// Package messaging publishes messages to a broker chosen at startup.
//
// Publisher hides the broker behind one call. NATS, Kafka, NSQ and Google
// Pub/Sub are supported, plus an in-process Memory publisher for local runs
// and tests. The service only produces messages; consumers live in the
// downstream systems that deliver codes to users.
package messaging
