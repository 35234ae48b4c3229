// Package heartbeat provides the liveness announcement engine. One engine
// runs one loop on its own goroutine: attempt delivery with bounded retry and
// exponential backoff, then count down a fixed interval, until a stop is
// requested. All waits are interruptible at tick granularity so a stop
// request is honored within one tick.
package heartbeat
