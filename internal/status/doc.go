// Package status relays job lifecycle events to the remote API. Delivery
// is best effort: local job state is always updated first, transmission is
// retried a bounded number of times, and failures surface only as a false
// return value so the pipeline is never stalled by the network.
package status
