/*
Package rabbitmq provides a RabbitMQ job queue transport.
It publishes job envelopes to the "jobs" exchange, includes an auto-reconnect
publisher, and supports optional header propagation via a job.HeaderPropagator.
*/
package rabbitmq
