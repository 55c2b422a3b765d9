// Package watcher discovers finished recordings in the input directory.
//
// Discovery is poll based. Network shares and upload tools rarely deliver
// usable change notifications, so the watcher lists the directory on a
// fixed cadence and treats a file as ready only after its size has held
// steady for a configured number of consecutive checks.
package watcher
